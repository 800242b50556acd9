package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is one payment event recorded on a tab.
// It is immutable after creation; it can only be deleted while the tab is open.
type Expense struct {
	ID           string          `json:"id"`
	TabID        string          `json:"tab_id"`
	PayerID      string          `json:"payer_id"`
	PayerAddress string          `json:"payer_address"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Currency     string          `json:"currency"`
	Timestamp    time.Time       `json:"timestamp"`

	// ParticipantIDs are the members who share this expense. Never empty.
	ParticipantIDs []string `json:"participant_ids"`

	// Weights is parallel to ParticipantIDs. Nil means an equal split.
	Weights []decimal.Decimal `json:"weights,omitempty"`
}

// Clone returns a copy with its own slices.
func (e Expense) Clone() Expense {
	e.ParticipantIDs = append([]string(nil), e.ParticipantIDs...)
	if e.Weights != nil {
		e.Weights = append([]decimal.Decimal(nil), e.Weights...)
	}
	return e
}
