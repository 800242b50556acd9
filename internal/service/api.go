package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tabsettle/internal/models"
)

// TabServiceName is the fully-qualified name of the TabService.
const TabServiceName = "tabsettle.v1.TabService"

// Procedure paths served by the TabService.
const (
	CreateTabProcedure         = "/" + TabServiceName + "/CreateTab"
	ListTabsProcedure          = "/" + TabServiceName + "/ListTabs"
	GetTabSummaryProcedure     = "/" + TabServiceName + "/GetTabSummary"
	AddExpenseProcedure        = "/" + TabServiceName + "/AddExpense"
	DeleteExpenseProcedure     = "/" + TabServiceName + "/DeleteExpense"
	ProposeSettlementProcedure = "/" + TabServiceName + "/ProposeSettlement"
	CancelSettlementProcedure  = "/" + TabServiceName + "/CancelSettlement"
	ApplyConfirmationProcedure = "/" + TabServiceName + "/ApplyConfirmation"
	ReportTransferProcedure    = "/" + TabServiceName + "/ReportTransfer"
)

type CreateTabRequest struct {
	GroupID      string               `json:"group_id"`
	Name         string               `json:"name"`
	Currency     string               `json:"currency"`
	Participants []models.Participant `json:"participants"`
}

type CreateTabResponse struct {
	Tab *models.Tab `json:"tab"`
}

type ListTabsRequest struct {
	GroupID string `json:"group_id"`
}

type ListTabsResponse struct {
	Tabs []*models.Tab `json:"tabs"`
}

type GetTabSummaryRequest struct {
	GroupID string `json:"group_id"`
	TabID   string `json:"tab_id"`
}

// Balance is one member's position on a tab.
type Balance struct {
	MemberID string          `json:"member_id"`
	Paid     decimal.Decimal `json:"paid"`
	Owed     decimal.Decimal `json:"owed"`
	Net      decimal.Decimal `json:"net"`
}

type GetTabSummaryResponse struct {
	Tab      *models.Tab `json:"tab"`
	Balances []Balance   `json:"balances"`
}

type AddExpenseRequest struct {
	GroupID string `json:"group_id"`
	TabID   string `json:"tab_id"`
	PayerID string `json:"payer_id"`

	// Amount is a decimal string such as "12.50".
	Amount         string   `json:"amount"`
	Description    string   `json:"description"`
	ParticipantIDs []string `json:"participant_ids"`

	// Weights is parallel to ParticipantIDs; omit for an equal split.
	Weights []string `json:"weights,omitempty"`
}

type AddExpenseResponse struct {
	Expense *models.Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	GroupID   string `json:"group_id"`
	TabID     string `json:"tab_id"`
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

type ProposeSettlementRequest struct {
	GroupID string `json:"group_id"`
	TabID   string `json:"tab_id"`

	// AssetID defaults to the tab currency.
	AssetID string `json:"asset_id,omitempty"`
}

type ProposeSettlementResponse struct {
	// Outcome is "proposed", "already_proposed" or "nothing_to_settle".
	Outcome    string             `json:"outcome"`
	Settlement *models.Settlement `json:"settlement,omitempty"`
	Tab        *models.Tab        `json:"tab"`
}

type CancelSettlementRequest struct {
	GroupID string `json:"group_id"`
	TabID   string `json:"tab_id"`
}

type CancelSettlementResponse struct {
	Tab *models.Tab `json:"tab"`
}

type ApplyConfirmationRequest struct {
	GroupID      string `json:"group_id"`
	TabID        string `json:"tab_id"`
	SettlementID string `json:"settlement_id"`
	LegID        string `json:"leg_id"`
	TxReference  string `json:"tx_reference"`
}

type ApplyConfirmationResponse struct {
	Tab *models.Tab `json:"tab"`
}

// ReportTransferRequest is an on-chain transfer seen by a chain watcher.
type ReportTransferRequest struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	AtomicAmount string `json:"atomic_amount"`
	AssetID      string `json:"asset_id,omitempty"`
	TxReference  string `json:"tx_reference"`
}

type ReportTransferResponse struct {
	Matched      bool        `json:"matched"`
	GroupID      string      `json:"group_id,omitempty"`
	TabID        string      `json:"tab_id,omitempty"`
	SettlementID string      `json:"settlement_id,omitempty"`
	LegID        string      `json:"leg_id,omitempty"`
	Tab          *models.Tab `json:"tab,omitempty"`
}
