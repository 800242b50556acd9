package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a Settlement.
type SettlementStatus string

const (
	SettlementProposed   SettlementStatus = "proposed"
	SettlementInProgress SettlementStatus = "in_progress"
	SettlementCompleted  SettlementStatus = "completed"
)

// LegStatus is the confirmation state of one settlement leg.
type LegStatus string

const (
	LegPending   LegStatus = "pending"
	LegConfirmed LegStatus = "confirmed"
)

// Settlement is one settlement attempt for a tab.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	// AssetID is the asset the legs are paid in. Defaults to the tab currency.
	AssetID string `json:"asset_id"`

	Status SettlementStatus `json:"status"`

	Transactions []SettlementTransaction `json:"transactions"`

	CreatedAt time.Time `json:"created_at"`
}

// SettlementTransaction is one transfer from a debtor to a creditor.
type SettlementTransaction struct {
	ID           string `json:"id"`
	FromMemberID string `json:"from_member_id"`
	FromAddress  string `json:"from_address"`
	ToMemberID   string `json:"to_member_id"`
	ToAddress    string `json:"to_address"`

	// Amount is rounded to the asset's decimals.
	Amount decimal.Decimal `json:"amount"`

	// AtomicAmount is Amount in the asset's smallest unit, as it appears on-chain.
	AtomicAmount string `json:"atomic_amount"`

	Status      LegStatus  `json:"status"`
	TxReference string     `json:"tx_reference,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Leg returns a pointer to the leg with the given ID, or nil.
func (s *Settlement) Leg(legID string) *SettlementTransaction {
	for i := range s.Transactions {
		if s.Transactions[i].ID == legID {
			return &s.Transactions[i]
		}
	}
	return nil
}

// ConfirmedCount returns how many legs have been confirmed.
func (s *Settlement) ConfirmedCount() int {
	n := 0
	for _, tx := range s.Transactions {
		if tx.Status == LegConfirmed {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (s Settlement) Clone() Settlement {
	txs := make([]SettlementTransaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		if tx.ConfirmedAt != nil {
			at := *tx.ConfirmedAt
			tx.ConfirmedAt = &at
		}
		txs[i] = tx
	}
	s.Transactions = txs
	return s
}
