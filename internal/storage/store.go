// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tabsettle/internal/models"
)

var (
	// ErrNotFound is returned when a tab does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by UpdateTab when the stored version differs from
	// the version the caller read.
	ErrConflict = errors.New("version conflict")
)

// Store defines the interface for tab storage operations.
// Tabs are keyed by (groupID, tabID) and written as whole records.
// This abstraction allows swapping storage backends (SQLite, in-memory, etc.)
// without changing the engine.
type Store interface {
	// CreateTab persists a new tab. ID, CreatedAt and UpdatedAt are populated
	// when empty; Version is set to 1.
	CreateTab(ctx context.Context, tab *models.Tab) error

	// GetTab retrieves a tab. Returns ErrNotFound if it does not exist.
	GetTab(ctx context.Context, groupID, tabID string) (*models.Tab, error)

	// ListTabs returns all tabs of a group, oldest first.
	ListTabs(ctx context.Context, groupID string) ([]*models.Tab, error)

	// UpdateTab replaces the stored record. tab.Version must match the stored
	// version or ErrConflict is returned; on success tab.Version is incremented.
	UpdateTab(ctx context.Context, tab *models.Tab) error

	// Close releases any resources held by the store.
	Close() error
}
