package engine

import (
	"context"
	"time"

	"github.com/mmynk/tabsettle/internal/models"
)

// EventType names an outgoing notification.
type EventType string

const (
	EventTabCreated          EventType = "tab_created"
	EventExpenseAdded        EventType = "expense_added"
	EventExpenseDeleted      EventType = "expense_deleted"
	EventSettlementProposed  EventType = "settlement_proposed"
	EventSettlementCancelled EventType = "settlement_cancelled"
	EventLegConfirmed        EventType = "leg_confirmed"
	EventTabSettled          EventType = "tab_settled"
)

// Event is a structured notification. Rendering it for people is the
// receiver's job.
type Event struct {
	Type         EventType        `json:"type"`
	GroupID      string           `json:"group_id"`
	TabID        string           `json:"tab_id"`
	Status       models.TabStatus `json:"status"`
	ExpenseID    string           `json:"expense_id,omitempty"`
	SettlementID string           `json:"settlement_id,omitempty"`
	LegID        string           `json:"leg_id,omitempty"`
	Amount       string           `json:"amount,omitempty"`
	FromName     string           `json:"from_name,omitempty"`
	ToName       string           `json:"to_name,omitempty"`
	TxReference  string           `json:"tx_reference,omitempty"`
	At           time.Time        `json:"at"`
}

// Notifier delivers events to the conversation layer.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// Resolver looks up member identities.
type Resolver interface {
	// ResolveAddress returns the payout address for a member name or ID.
	ResolveAddress(ctx context.Context, name string) (string, error)

	// DisplayName returns a human-friendly name for an address.
	DisplayName(ctx context.Context, address string) string
}
