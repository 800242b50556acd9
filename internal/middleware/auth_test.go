package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/tabsettle/internal/auth"
)

func TestGroupAllowed(t *testing.T) {
	ctx := context.Background()
	assert.True(t, GroupAllowed(ctx, "g1"), "no claims means auth is off")

	scoped := WithClaims(ctx, &auth.Claims{Caller: "bot", Groups: []string{"g1"}})
	assert.Equal(t, "bot", GetCaller(scoped))
	assert.True(t, GroupAllowed(scoped, "g1"))
	assert.False(t, GroupAllowed(scoped, "g2"))
	assert.False(t, GroupAllowed(scoped, auth.AllGroups))

	all := WithClaims(ctx, &auth.Claims{Caller: "watcher", Groups: []string{auth.AllGroups}})
	assert.True(t, GroupAllowed(all, "g2"))
}
