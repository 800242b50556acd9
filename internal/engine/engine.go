// Package engine implements the tab lifecycle: expenses, balances, settlement
// proposals and leg confirmations.
//
// Every mutation reads the whole tab, applies a change and writes it back
// under the store's version check. Mutations on the same tab are serialized
// in-process, and a version conflict from another process is retried with a
// fresh read.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabsettle/internal/metrics"
	"github.com/mmynk/tabsettle/internal/models"
	"github.com/mmynk/tabsettle/internal/money"
	"github.com/mmynk/tabsettle/internal/pending"
	"github.com/mmynk/tabsettle/internal/storage"
)

// DefaultMaxRetries bounds optimistic retries after a version conflict.
const DefaultMaxRetries = 5

// errNoWrite aborts a mutation without persisting and without failing it.
var errNoWrite = errors.New("no write")

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// Epsilon is the magnitude below which a balance counts as settled.
	Epsilon decimal.Decimal

	Assets     *money.Registry
	Notifier   Notifier
	Resolver   Resolver
	Metrics    *metrics.Metrics
	MaxRetries int
}

// Engine coordinates tab storage, settlement math and the pending index.
type Engine struct {
	store      storage.Store
	matcher    *pending.Matcher
	assets     *money.Registry
	notifier   Notifier
	resolver   Resolver
	metrics    *metrics.Metrics
	epsilon    decimal.Decimal
	maxRetries int

	locks keyedMutex
	now   func() time.Time
}

// New creates an Engine over store and matcher.
func New(store storage.Store, matcher *pending.Matcher, opts Options) *Engine {
	e := &Engine{
		store:      store,
		matcher:    matcher,
		assets:     opts.Assets,
		notifier:   opts.Notifier,
		resolver:   opts.Resolver,
		metrics:    opts.Metrics,
		epsilon:    opts.Epsilon,
		maxRetries: opts.MaxRetries,
		now:        time.Now,
	}
	if e.assets == nil {
		e.assets = money.NewRegistry(money.DefaultAssets)
	}
	if e.notifier == nil {
		e.notifier = NopNotifier{}
	}
	if !e.epsilon.IsPositive() {
		e.epsilon = money.DefaultEpsilon
	}
	if e.maxRetries <= 0 {
		e.maxRetries = DefaultMaxRetries
	}
	return e
}

// Epsilon returns the settled-balance threshold in use.
func (e *Engine) Epsilon() decimal.Decimal {
	return e.epsilon
}

// load reads a tab and translates storage errors.
func (e *Engine) load(ctx context.Context, groupID, tabID string) (*models.Tab, error) {
	if groupID == "" || tabID == "" {
		return nil, validationf("group_id and tab_id are required")
	}
	tab, err := e.store.GetTab(ctx, groupID, tabID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &Error{Kind: ErrNotFound, TabID: tabID, Message: "tab does not exist"}
	}
	if err != nil {
		return nil, unavailable(tabID, err)
	}
	return tab, nil
}

// mutate applies fn to a fresh copy of the tab and writes it back. fn may run
// more than once, so it must only touch the tab it is given. Returning
// errNoWrite from fn ends the call successfully with the unchanged tab.
func (e *Engine) mutate(ctx context.Context, groupID, tabID string, fn func(tab *models.Tab) error) (*models.Tab, error) {
	unlock := e.locks.lock(groupID + "/" + tabID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		tab, err := e.load(ctx, groupID, tabID)
		if err != nil {
			return nil, err
		}
		if err := fn(tab); err != nil {
			if errors.Is(err, errNoWrite) {
				return tab, nil
			}
			return nil, err
		}
		tab.UpdatedAt = e.now().UTC()

		err = e.store.UpdateTab(ctx, tab)
		switch {
		case err == nil:
			return tab, nil
		case errors.Is(err, storage.ErrConflict) && attempt < e.maxRetries:
			slog.Debug("Tab version conflict, retrying", "group_id", groupID, "tab_id", tabID, "attempt", attempt+1)
			continue
		case errors.Is(err, storage.ErrNotFound):
			return nil, &Error{Kind: ErrNotFound, TabID: tabID, Message: "tab does not exist"}
		default:
			return nil, unavailable(tabID, err)
		}
	}
}

// notify publishes an event. Delivery failures are logged and never fail the
// operation that produced the event.
func (e *Engine) notify(ctx context.Context, ev Event) {
	ev.At = e.now().UTC()
	if err := e.notifier.Notify(ctx, ev); err != nil {
		slog.Warn("Failed to deliver notification", "type", ev.Type, "group_id", ev.GroupID, "tab_id", ev.TabID, "error", err)
	}
}

func (e *Engine) displayName(ctx context.Context, memberID, addr string) string {
	if e.resolver == nil {
		return memberID
	}
	if name := e.resolver.DisplayName(ctx, addr); name != "" {
		return name
	}
	return memberID
}
