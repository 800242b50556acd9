package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tabsettle/internal/storage/memory"
	"github.com/mmynk/tabsettle/internal/storage/sqlite"
)

func TestOpenStore(t *testing.T) {
	store, err := openStore(":memory:")
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	store, err = openStore(filepath.Join(t.TempDir(), "tabs.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &sqlite.SQLiteStore{}, store)
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tabsettle.v1.TabService/CreateTab", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}
