// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/tabsettle/internal/models"
	"github.com/mmynk/tabsettle/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		// Create parent directory if it doesn't exist
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTab persists a new tab to the database.
func (s *SQLiteStore) CreateTab(ctx context.Context, tab *models.Tab) error {
	// Generate ID if not set
	if tab.ID == "" {
		tab.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if tab.CreatedAt.IsZero() {
		tab.CreatedAt = now
	}
	tab.UpdatedAt = now
	tab.Version = 1

	doc, err := json.Marshal(tab)
	if err != nil {
		return fmt.Errorf("failed to encode tab: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tabs (group_id, id, name, currency, status, version, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tab.GroupID, tab.ID, tab.Name, tab.Currency, string(tab.Status), tab.Version,
		string(doc), tab.CreatedAt.UnixNano(), tab.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tab: %w", err)
	}

	return nil
}

// GetTab retrieves a tab by group and ID.
func (s *SQLiteStore) GetTab(ctx context.Context, groupID, tabID string) (*models.Tab, error) {
	var doc string
	var version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT document, version FROM tabs WHERE group_id = ? AND id = ?",
		groupID, tabID,
	).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tab %s: %w", tabID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tab: %w", err)
	}

	return decodeTab(doc, version)
}

// ListTabs retrieves all tabs for a group, oldest first.
func (s *SQLiteStore) ListTabs(ctx context.Context, groupID string) ([]*models.Tab, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT document, version FROM tabs WHERE group_id = ? ORDER BY created_at, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs by group: %w", err)
	}
	defer rows.Close()

	var tabs []*models.Tab
	for rows.Next() {
		var doc string
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("failed to scan tab: %w", err)
		}
		tab, err := decodeTab(doc, version)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, tab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tabs: %w", err)
	}

	return tabs, nil
}

// UpdateTab replaces a tab if its version still matches the stored one.
func (s *SQLiteStore) UpdateTab(ctx context.Context, tab *models.Tab) error {
	next := tab.Clone()
	next.Version = tab.Version + 1
	next.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode tab: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tabs SET name = ?, currency = ?, status = ?, version = ?, document = ?, updated_at = ?
		 WHERE group_id = ? AND id = ? AND version = ?`,
		next.Name, next.Currency, string(next.Status), next.Version, string(doc), next.UpdatedAt.UnixNano(),
		tab.GroupID, tab.ID, tab.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update tab: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if n == 0 {
		// Distinguish a missing tab from a stale version
		var stored int64
		err := s.db.QueryRowContext(ctx,
			"SELECT version FROM tabs WHERE group_id = ? AND id = ?",
			tab.GroupID, tab.ID,
		).Scan(&stored)
		if err == sql.ErrNoRows {
			return fmt.Errorf("tab %s: %w", tab.ID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check tab version: %w", err)
		}
		return fmt.Errorf("tab %s at version %d, have %d: %w", tab.ID, stored, tab.Version, storage.ErrConflict)
	}

	tab.Version = next.Version
	tab.UpdatedAt = next.UpdatedAt
	return nil
}

// decodeTab unmarshals a stored document. The version column is authoritative.
func decodeTab(doc string, version int64) (*models.Tab, error) {
	tab := &models.Tab{}
	if err := json.Unmarshal([]byte(doc), tab); err != nil {
		return nil, fmt.Errorf("failed to decode tab: %w", err)
	}
	tab.Version = version
	return tab, nil
}
