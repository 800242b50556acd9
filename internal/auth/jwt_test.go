package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("chat-frontend", []string{"g1", "g2"})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "chat-frontend", claims.Caller)
	assert.Equal(t, "chat-frontend", claims.Subject)
	assert.True(t, claims.AllowsGroup("g2"))
	assert.False(t, claims.AllowsGroup("g3"))
}

func TestAllGroups(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, err := m.Generate("chain-watcher", []string{AllGroups})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.AllowsGroup("anything"))
}

func TestValidateRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	other, err := NewJWTManager("other-secret", time.Hour).Generate("x", nil)
	require.NoError(t, err)
	_, err = m.Validate(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTManager("test-secret", -time.Minute).Generate("x", nil)
	require.NoError(t, err)
	_, err = m.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Generate("", nil)
	assert.Error(t, err)
}
