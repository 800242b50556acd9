// Package memory provides an in-process implementation of storage.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tabsettle/internal/models"
	"github.com/mmynk/tabsettle/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type key struct {
	groupID string
	tabID   string
}

// Store keeps tabs in a map. Records are copied on the way in and out.
type Store struct {
	mu   sync.RWMutex
	tabs map[key]*models.Tab
}

// New creates an empty Store.
func New() *Store {
	return &Store{tabs: make(map[key]*models.Tab)}
}

func (s *Store) CreateTab(_ context.Context, tab *models.Tab) error {
	if tab.ID == "" {
		tab.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if tab.CreatedAt.IsZero() {
		tab.CreatedAt = now
	}
	tab.UpdatedAt = now
	tab.Version = 1

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{tab.GroupID, tab.ID}
	if _, exists := s.tabs[k]; exists {
		return fmt.Errorf("tab %s already exists", tab.ID)
	}
	s.tabs[k] = tab.Clone()
	return nil
}

func (s *Store) GetTab(_ context.Context, groupID, tabID string) (*models.Tab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab, ok := s.tabs[key{groupID, tabID}]
	if !ok {
		return nil, fmt.Errorf("tab %s: %w", tabID, storage.ErrNotFound)
	}
	return tab.Clone(), nil
}

func (s *Store) ListTabs(_ context.Context, groupID string) ([]*models.Tab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tabs []*models.Tab
	for k, tab := range s.tabs {
		if k.groupID == groupID {
			tabs = append(tabs, tab.Clone())
		}
	}
	sort.Slice(tabs, func(i, j int) bool {
		if !tabs[i].CreatedAt.Equal(tabs[j].CreatedAt) {
			return tabs[i].CreatedAt.Before(tabs[j].CreatedAt)
		}
		return tabs[i].ID < tabs[j].ID
	})
	return tabs, nil
}

func (s *Store) UpdateTab(_ context.Context, tab *models.Tab) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{tab.GroupID, tab.ID}
	stored, ok := s.tabs[k]
	if !ok {
		return fmt.Errorf("tab %s: %w", tab.ID, storage.ErrNotFound)
	}
	if stored.Version != tab.Version {
		return fmt.Errorf("tab %s at version %d, have %d: %w", tab.ID, stored.Version, tab.Version, storage.ErrConflict)
	}

	tab.Version++
	tab.UpdatedAt = time.Now().UTC()
	s.tabs[k] = tab.Clone()
	return nil
}

func (s *Store) Close() error {
	return nil
}
