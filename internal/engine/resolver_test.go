package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(map[string]string{"alice": "0xAbC0000000000000000000000000000000000001"})

	addr, err := r.ResolveAddress(context.Background(), " Alice ")
	require.NoError(t, err)
	assert.Equal(t, "0xAbC0000000000000000000000000000000000001", addr)

	_, err = r.ResolveAddress(context.Background(), "bob")
	assert.Error(t, err)

	assert.Equal(t, "alice", r.DisplayName(context.Background(), "0xabc0000000000000000000000000000000000001"))
	assert.Empty(t, r.DisplayName(context.Background(), "0xdead"))
}
