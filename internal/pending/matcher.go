package pending

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mmynk/tabsettle/internal/address"
	"github.com/mmynk/tabsettle/internal/models"
)

// ErrInvalidObservation is returned for observations that cannot be compared.
var ErrInvalidObservation = errors.New("invalid transfer observation")

// Observation is an externally observed on-chain transfer.
type Observation struct {
	Sender    string
	Recipient string

	// AtomicAmount is the integer amount in the asset's smallest unit.
	AtomicAmount string

	// AssetID, when set, must equal the pending entry's asset.
	AssetID string

	TxReference string
}

// Matcher registers pending legs and resolves observations to exactly one of them.
type Matcher struct {
	index Index
	ttl   time.Duration
	now   func() time.Time
}

// NewMatcher creates a Matcher over index. Entries expire after ttl.
func NewMatcher(index Index, ttl time.Duration) *Matcher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Matcher{index: index, ttl: ttl, now: time.Now}
}

// Register adds entries with a normalized sender and a fresh expiry.
func (m *Matcher) Register(ctx context.Context, entries []models.PendingTransfer) error {
	expires := m.now().Add(m.ttl).UTC()
	prepared := make([]models.PendingTransfer, len(entries))
	for i, e := range entries {
		e.Sender = address.Normalize(e.Sender)
		e.ToAddress = address.Normalize(e.ToAddress)
		e.ExpiresAt = expires
		prepared[i] = e
	}
	return m.index.Add(ctx, prepared...)
}

// Forget removes entries, e.g. when a proposal is abandoned. Missing entries are ignored.
func (m *Matcher) Forget(ctx context.Context, entries []models.PendingTransfer) error {
	for _, e := range entries {
		e.Sender = address.Normalize(e.Sender)
		list, err := m.index.List(ctx, e.Sender)
		if err != nil {
			return err
		}
		for _, stored := range list {
			if stored.LegID == e.LegID && stored.SettlementID == e.SettlementID {
				if _, err := m.index.Remove(ctx, stored); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Match finds the first pending entry of obs.Sender whose recipient matches
// case-insensitively and whose atomic amount is exactly equal, removes it and
// returns it. A nil entry with a nil error means no match.
func (m *Matcher) Match(ctx context.Context, obs Observation) (*models.PendingTransfer, error) {
	observed, ok := new(big.Int).SetString(strings.TrimSpace(obs.AtomicAmount), 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidObservation, obs.AtomicAmount)
	}

	entries, err := m.index.List(ctx, address.Normalize(obs.Sender))
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if !address.Equal(e.ToAddress, obs.Recipient) {
			continue
		}
		if obs.AssetID != "" && !strings.EqualFold(obs.AssetID, e.AssetID) {
			continue
		}
		expected, ok := new(big.Int).SetString(e.AtomicAmount, 10)
		if !ok || expected.Cmp(observed) != 0 {
			continue
		}

		removed, err := m.index.Remove(ctx, e)
		if err != nil {
			return nil, err
		}
		if !removed {
			// A concurrent confirmation consumed it; try the next candidate.
			continue
		}
		match := e
		return &match, nil
	}

	return nil, nil
}

// Sweep purges expired entries from the index.
func (m *Matcher) Sweep(ctx context.Context) (int, error) {
	return m.index.Purge(ctx, m.now())
}
