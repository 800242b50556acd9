package models

import "time"

// PendingTransfer is a settlement leg awaiting an on-chain confirmation.
type PendingTransfer struct {
	GroupID      string `json:"group_id"`
	TabID        string `json:"tab_id"`
	SettlementID string `json:"settlement_id"`
	LegID        string `json:"leg_id"`
	Sender       string `json:"sender"`
	ToAddress    string `json:"to_address"`

	// AtomicAmount is compared exactly against observed transfers.
	AtomicAmount string `json:"atomic_amount"`
	AssetID      string `json:"asset_id"`

	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (p PendingTransfer) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}
