// Package auth issues and validates tokens for services that call the
// settlement API, such as the chat front end and the chain watcher.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// AllGroups in a token's group list grants access to every group.
const AllGroups = "*"

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims identifies a calling service and the groups it may act on.
type Claims struct {
	Caller string   `json:"caller"`
	Groups []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

// AllowsGroup reports whether the token grants access to groupID.
func (c *Claims) AllowsGroup(groupID string) bool {
	return slices.Contains(c.Groups, AllGroups) || slices.Contains(c.Groups, groupID)
}

// NewJWTManager creates a new JWT manager with the given secret and token duration.
// secretKey should be a strong random string (e.g., 32 bytes).
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate creates a token for caller scoped to groups.
func (m *JWTManager) Generate(caller string, groups []string) (string, error) {
	if caller == "" {
		return "", errors.New("caller is required")
	}
	now := time.Now()
	claims := &Claims{
		Caller: caller,
		Groups: groups,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and validates a JWT token, returning the claims if valid.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Caller == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
