package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tabsettle/internal/address"
	"github.com/mmynk/tabsettle/internal/calculator"
	"github.com/mmynk/tabsettle/internal/models"
)

// CreateTabInput describes a new tab.
type CreateTabInput struct {
	GroupID  string
	Name     string
	Currency string

	// Participants is the member snapshot. A missing address is filled in by
	// the Resolver when one is configured.
	Participants []models.Participant
}

// AddExpenseInput describes an expense to record.
type AddExpenseInput struct {
	GroupID        string
	TabID          string
	PayerID        string
	Amount         decimal.Decimal
	Description    string
	ParticipantIDs []string

	// Weights is parallel to ParticipantIDs. Empty means an equal split.
	Weights []decimal.Decimal
}

// TabSummary is a tab with its computed per-member balances.
type TabSummary struct {
	Tab      *models.Tab
	Balances []calculator.MemberBalance
}

// CreateTab validates the input and persists an open tab.
func (e *Engine) CreateTab(ctx context.Context, in CreateTabInput) (*models.Tab, error) {
	name := strings.TrimSpace(in.Name)
	if in.GroupID == "" {
		return nil, validationf("group_id is required")
	}
	if name == "" {
		return nil, validationf("tab name is required")
	}
	asset, err := e.assets.Lookup(in.Currency)
	if err != nil {
		return nil, &Error{Kind: ErrValidation, Message: "unsupported currency", Err: err}
	}
	if len(in.Participants) == 0 {
		return nil, validationf("a tab needs at least one participant")
	}

	participants := make([]models.Participant, 0, len(in.Participants))
	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		id := strings.TrimSpace(p.MemberID)
		if id == "" {
			return nil, validationf("participant member_id is required")
		}
		if seen[id] {
			return nil, validationf("participant %q is listed twice", id)
		}
		seen[id] = true

		addr := strings.TrimSpace(p.Address)
		if addr == "" && e.resolver != nil {
			addr, err = e.resolver.ResolveAddress(ctx, id)
			if err != nil {
				return nil, &Error{Kind: ErrValidation, Message: "cannot resolve address for " + id, Err: err}
			}
		}
		if addr == "" {
			return nil, validationf("participant %q has no address", id)
		}
		participants = append(participants, models.Participant{MemberID: id, Address: address.Checksum(addr)})
	}

	tab := &models.Tab{
		ID:           uuid.New().String(),
		GroupID:      in.GroupID,
		Name:         name,
		Currency:     asset.Symbol,
		Participants: participants,
		Expenses:     []models.Expense{},
		Status:       models.TabOpen,
		CreatedAt:    e.now().UTC(),
	}
	tab.UpdatedAt = tab.CreatedAt
	if err := e.store.CreateTab(ctx, tab); err != nil {
		return nil, unavailable(tab.ID, err)
	}

	slog.Info("Tab created", "group_id", tab.GroupID, "tab_id", tab.ID, "currency", tab.Currency, "participants", len(participants))
	e.notify(ctx, Event{Type: EventTabCreated, GroupID: tab.GroupID, TabID: tab.ID, Status: tab.Status})
	return tab, nil
}

// GetTab returns a tab by ID.
func (e *Engine) GetTab(ctx context.Context, groupID, tabID string) (*models.Tab, error) {
	return e.load(ctx, groupID, tabID)
}

// ListTabs returns every tab of a group, oldest first.
func (e *Engine) ListTabs(ctx context.Context, groupID string) ([]*models.Tab, error) {
	if groupID == "" {
		return nil, validationf("group_id is required")
	}
	tabs, err := e.store.ListTabs(ctx, groupID)
	if err != nil {
		return nil, unavailable("", err)
	}
	return tabs, nil
}

// GetTabSummary returns the tab's expenses and per-member balances.
func (e *Engine) GetTabSummary(ctx context.Context, groupID, tabID string) (*TabSummary, error) {
	tab, err := e.load(ctx, groupID, tabID)
	if err != nil {
		return nil, err
	}
	balances, err := calculator.Summarize(tab.ParticipantIDs(), tab.Expenses)
	if err != nil {
		return nil, &Error{Kind: ErrValidation, TabID: tab.ID, Status: tab.Status, Message: "stored expense is invalid", Err: err}
	}
	return &TabSummary{Tab: tab, Balances: balances}, nil
}

// AddExpense records an expense. On a tab with a proposed but unconfirmed
// settlement the proposal is discarded and the tab reopens.
func (e *Engine) AddExpense(ctx context.Context, in AddExpenseInput) (*models.Expense, error) {
	if !in.Amount.IsPositive() {
		return nil, &Error{Kind: ErrValidation, TabID: in.TabID, Amount: in.Amount.String(), Message: "amount must be positive"}
	}
	if len(in.ParticipantIDs) == 0 {
		return nil, &Error{Kind: ErrValidation, TabID: in.TabID, Message: "expense needs at least one participant"}
	}
	if len(in.Weights) > 0 && len(in.Weights) != len(in.ParticipantIDs) {
		return nil, &Error{Kind: ErrValidation, TabID: in.TabID, Message: "weights must match participants one to one"}
	}
	// Same checks the balance calculator applies later, surfaced up front.
	if _, err := calculator.CalculateShares(in.Amount, in.ParticipantIDs, in.Weights); err != nil {
		return nil, &Error{Kind: ErrValidation, TabID: in.TabID, Amount: in.Amount.String(), Err: err}
	}

	var (
		expense   models.Expense
		abandoned *models.Settlement
	)
	tab, err := e.mutate(ctx, in.GroupID, in.TabID, func(tab *models.Tab) error {
		abandoned = nil
		if err := checkExpenseMutable(tab); err != nil {
			return err
		}

		payer, ok := tab.Participant(in.PayerID)
		if !ok {
			return &Error{Kind: ErrValidation, TabID: tab.ID, Status: tab.Status, Message: "payer " + in.PayerID + " is not a tab participant"}
		}
		seen := make(map[string]bool, len(in.ParticipantIDs))
		for _, id := range in.ParticipantIDs {
			if _, ok := tab.Participant(id); !ok {
				return &Error{Kind: ErrValidation, TabID: tab.ID, Status: tab.Status, Message: "participant " + id + " is not a tab participant"}
			}
			if seen[id] {
				return &Error{Kind: ErrValidation, TabID: tab.ID, Status: tab.Status, Message: "participant " + id + " is listed twice"}
			}
			seen[id] = true
		}

		abandoned = reopen(tab)

		expense = models.Expense{
			ID:             uuid.New().String(),
			TabID:          tab.ID,
			PayerID:        payer.MemberID,
			PayerAddress:   payer.Address,
			Amount:         in.Amount,
			Description:    strings.TrimSpace(in.Description),
			Currency:       tab.Currency,
			Timestamp:      e.now().UTC(),
			ParticipantIDs: append([]string(nil), in.ParticipantIDs...),
		}
		if len(in.Weights) > 0 {
			expense.Weights = append([]decimal.Decimal(nil), in.Weights...)
		}
		tab.Expenses = append(tab.Expenses, expense)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.discardPending(ctx, tab, abandoned)
	e.metrics.ExpenseAdded()
	slog.Info("Expense added", "group_id", tab.GroupID, "tab_id", tab.ID, "expense_id", expense.ID, "amount", expense.Amount.String())
	e.notify(ctx, Event{
		Type:      EventExpenseAdded,
		GroupID:   tab.GroupID,
		TabID:     tab.ID,
		Status:    tab.Status,
		ExpenseID: expense.ID,
		Amount:    expense.Amount.String(),
	})
	return &expense, nil
}

// DeleteExpense removes an expense from a tab that has not started settling.
func (e *Engine) DeleteExpense(ctx context.Context, groupID, tabID, expenseID string) error {
	var abandoned *models.Settlement
	tab, err := e.mutate(ctx, groupID, tabID, func(tab *models.Tab) error {
		abandoned = nil
		if err := checkExpenseMutable(tab); err != nil {
			return err
		}
		i := tab.ExpenseIndex(expenseID)
		if i < 0 {
			return &Error{Kind: ErrNotFound, TabID: tab.ID, Status: tab.Status, Message: "expense " + expenseID + " does not exist"}
		}
		abandoned = reopen(tab)
		tab.Expenses = append(tab.Expenses[:i], tab.Expenses[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	e.discardPending(ctx, tab, abandoned)
	slog.Info("Expense deleted", "group_id", groupID, "tab_id", tabID, "expense_id", expenseID)
	e.notify(ctx, Event{Type: EventExpenseDeleted, GroupID: groupID, TabID: tabID, Status: tab.Status, ExpenseID: expenseID})
	return nil
}

func checkExpenseMutable(tab *models.Tab) error {
	switch tab.Status {
	case models.TabSettling, models.TabSettled:
		return lockedError(tab)
	}
	return nil
}

// reopen discards a proposed settlement and returns it, or nil if there was none.
func reopen(tab *models.Tab) *models.Settlement {
	if tab.Status != models.TabSettlementProposed {
		return nil
	}
	abandoned := tab.CurrentSettlement
	tab.CurrentSettlement = nil
	tab.Status = models.TabOpen
	return abandoned
}

// discardPending forgets the pending legs of an abandoned settlement.
// Leftover entries expire on their own, so failures are only logged.
func (e *Engine) discardPending(ctx context.Context, tab *models.Tab, abandoned *models.Settlement) {
	if abandoned == nil {
		return
	}
	slog.Info("Proposed settlement discarded", "group_id", tab.GroupID, "tab_id", tab.ID, "settlement_id", abandoned.ID)
	if err := e.matcher.Forget(ctx, pendingEntries(tab, abandoned)); err != nil {
		slog.Warn("Failed to forget pending legs", "settlement_id", abandoned.ID, "error", err)
	}
}
