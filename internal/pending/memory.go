package pending

import (
	"context"
	"sync"
	"time"

	"github.com/mmynk/tabsettle/internal/models"
)

var _ Index = (*MemoryIndex)(nil)

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu      sync.Mutex
	entries map[string][]models.PendingTransfer
	now     func() time.Time
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string][]models.PendingTransfer),
		now:     time.Now,
	}
}

func (m *MemoryIndex) Add(_ context.Context, entries ...models.PendingTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		k := keyFor(e.Sender)
		m.entries[k] = append(m.entries[k], e)
	}
	return nil
}

func (m *MemoryIndex) List(_ context.Context, sender string) ([]models.PendingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []models.PendingTransfer
	for _, e := range m.entries[keyFor(sender)] {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryIndex) Remove(_ context.Context, entry models.PendingTransfer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyFor(entry.Sender)
	list := m.entries[k]
	for i, e := range list {
		if e.LegID == entry.LegID && e.SettlementID == entry.SettlementID {
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(m.entries, k)
			} else {
				m.entries[k] = list
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryIndex) Purge(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for k, list := range m.entries {
		kept := list[:0]
		for _, e := range list {
			if e.Expired(now) {
				purged++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(m.entries, k)
		} else {
			m.entries[k] = kept
		}
	}
	return purged, nil
}
