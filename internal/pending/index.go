// Package pending tracks unconfirmed settlement legs and matches observed
// on-chain transfers back to them.
package pending

import (
	"context"
	"time"

	"github.com/mmynk/tabsettle/internal/models"
)

// DefaultTTL bounds how long an abandoned leg stays in the index.
const DefaultTTL = 24 * time.Hour

// Index stores pending transfers per sender, in registration order.
// Senders are normalized by the caller.
type Index interface {
	// Add appends entries under their Sender.
	Add(ctx context.Context, entries ...models.PendingTransfer) error

	// List returns the sender's unexpired entries in registration order.
	List(ctx context.Context, sender string) ([]models.PendingTransfer, error)

	// Remove deletes one entry. It reports false if the entry was already gone,
	// which callers treat as "someone else consumed it".
	Remove(ctx context.Context, entry models.PendingTransfer) (bool, error)

	// Purge drops entries that expired before now and returns how many were dropped.
	Purge(ctx context.Context, now time.Time) (int, error)
}

func keyFor(sender string) string {
	return "pendingTx:" + sender
}
