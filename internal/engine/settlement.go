package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/tabsettle/internal/calculator"
	"github.com/mmynk/tabsettle/internal/models"
	"github.com/mmynk/tabsettle/internal/money"
	"github.com/mmynk/tabsettle/internal/pending"
)

// ProposeOutcome tags the result of ProposeSettlement.
type ProposeOutcome string

const (
	// OutcomeProposed means a new settlement was created.
	OutcomeProposed ProposeOutcome = "proposed"

	// OutcomeAlreadyProposed means the tab already had an unconfirmed
	// proposal for the same asset, which is returned unchanged.
	OutcomeAlreadyProposed ProposeOutcome = "already_proposed"

	// OutcomeNothingToSettle means every balance is within epsilon of zero.
	OutcomeNothingToSettle ProposeOutcome = "nothing_to_settle"
)

// ProposeResult is the tagged result of ProposeSettlement. Settlement is nil
// when Outcome is OutcomeNothingToSettle.
type ProposeResult struct {
	Outcome    ProposeOutcome
	Tab        *models.Tab
	Settlement *models.Settlement
}

// Confirmation is a matched transfer and the tab after applying it.
type Confirmation struct {
	Transfer models.PendingTransfer
	Tab      *models.Tab
}

// ProposeSettlement computes the transfers that settle the tab and records
// them as the current settlement. assetID defaults to the tab currency.
func (e *Engine) ProposeSettlement(ctx context.Context, groupID, tabID, assetID string) (*ProposeResult, error) {
	var outcome ProposeOutcome
	tab, err := e.mutate(ctx, groupID, tabID, func(tab *models.Tab) error {
		outcome = ""
		switch tab.Status {
		case models.TabSettling:
			return stateError(tab, "already settling")
		case models.TabSettled:
			return stateError(tab, "already settled")
		}

		asset, err := e.settlementAsset(tab, assetID)
		if err != nil {
			return err
		}

		switch tab.Status {
		case models.TabSettlementProposed:
			if tab.CurrentSettlement == nil {
				reopen(tab)
				break
			}
			if strings.EqualFold(tab.CurrentSettlement.AssetID, asset.Symbol) {
				outcome = OutcomeAlreadyProposed
				return errNoWrite
			}
			return stateError(tab, "a settlement in "+tab.CurrentSettlement.AssetID+" is already proposed; cancel it first")
		}

		settlement, err := e.buildSettlement(tab, asset)
		if err != nil {
			return err
		}
		if settlement == nil {
			outcome = OutcomeNothingToSettle
			return errNoWrite
		}
		tab.CurrentSettlement = settlement
		tab.Status = models.TabSettlementProposed
		outcome = OutcomeProposed
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ProposeResult{Outcome: outcome, Tab: tab, Settlement: tab.CurrentSettlement}
	switch outcome {
	case OutcomeNothingToSettle:
		result.Settlement = nil
		slog.Info("Nothing to settle", "group_id", groupID, "tab_id", tabID)
		return result, nil
	case OutcomeAlreadyProposed:
		return result, nil
	}

	settlement := tab.CurrentSettlement
	if err := e.matcher.Register(ctx, pendingEntries(tab, settlement)); err != nil {
		slog.Error("Failed to register pending legs, withdrawing proposal", "group_id", groupID, "tab_id", tabID, "settlement_id", settlement.ID, "error", err)
		e.withdraw(ctx, groupID, tabID, settlement.ID)
		return nil, unavailable(tabID, err)
	}

	e.metrics.SettlementProposed()
	slog.Info("Settlement proposed", "group_id", groupID, "tab_id", tabID, "settlement_id", settlement.ID,
		"asset", settlement.AssetID, "transfers", len(settlement.Transactions))
	e.notify(ctx, Event{Type: EventSettlementProposed, GroupID: groupID, TabID: tabID, Status: tab.Status, SettlementID: settlement.ID})
	return result, nil
}

func (e *Engine) settlementAsset(tab *models.Tab, assetID string) (money.Asset, error) {
	if assetID == "" {
		assetID = tab.Currency
	}
	asset, err := e.assets.Lookup(assetID)
	if err != nil {
		return money.Asset{}, &Error{Kind: ErrValidation, TabID: tab.ID, Status: tab.Status, Message: "unsupported settlement asset", Err: err}
	}
	return asset, nil
}

// buildSettlement turns the tab's balances into settlement legs. It returns
// nil when there is nothing to settle.
func (e *Engine) buildSettlement(tab *models.Tab, asset money.Asset) (*models.Settlement, error) {
	balances, err := calculator.ComputeBalances(tab.Expenses)
	if err != nil {
		return nil, &Error{Kind: ErrValidation, TabID: tab.ID, Status: tab.Status, Message: "stored expense is invalid", Err: err}
	}
	transfers := calculator.Optimize(calculator.BalancesFromMap(balances), tab.Currency, e.epsilon)

	legs := make([]models.SettlementTransaction, 0, len(transfers))
	for _, t := range transfers {
		amount := asset.Round(t.Amount)
		if !amount.IsPositive() {
			continue
		}
		atomic, err := asset.ToAtomic(amount)
		if err != nil {
			return nil, &Error{Kind: ErrValidation, TabID: tab.ID, Status: tab.Status, Amount: amount.String(), Err: err}
		}
		from, _ := tab.Participant(t.From)
		to, _ := tab.Participant(t.To)
		legs = append(legs, models.SettlementTransaction{
			ID:           uuid.New().String(),
			FromMemberID: t.From,
			FromAddress:  from.Address,
			ToMemberID:   t.To,
			ToAddress:    to.Address,
			Amount:       amount,
			AtomicAmount: atomic,
			Status:       models.LegPending,
		})
	}
	if len(legs) == 0 {
		return nil, nil
	}

	return &models.Settlement{
		ID:           uuid.New().String(),
		AssetID:      asset.Symbol,
		Status:       models.SettlementProposed,
		Transactions: legs,
		CreatedAt:    e.now().UTC(),
	}, nil
}

// withdraw reopens a tab whose proposal could not be registered for matching.
func (e *Engine) withdraw(ctx context.Context, groupID, tabID, settlementID string) {
	_, err := e.mutate(ctx, groupID, tabID, func(tab *models.Tab) error {
		if tab.Status != models.TabSettlementProposed || tab.CurrentSettlement == nil || tab.CurrentSettlement.ID != settlementID {
			return errNoWrite
		}
		reopen(tab)
		return nil
	})
	if err != nil {
		slog.Error("Failed to withdraw settlement", "group_id", groupID, "tab_id", tabID, "settlement_id", settlementID, "error", err)
	}
}

// CancelSettlement discards a proposed settlement that has no confirmed legs.
func (e *Engine) CancelSettlement(ctx context.Context, groupID, tabID string) (*models.Tab, error) {
	var abandoned *models.Settlement
	tab, err := e.mutate(ctx, groupID, tabID, func(tab *models.Tab) error {
		switch tab.Status {
		case models.TabOpen:
			return stateError(tab, "no settlement is proposed")
		case models.TabSettling:
			return stateError(tab, "already settling")
		case models.TabSettled:
			return stateError(tab, "already settled")
		}
		abandoned = reopen(tab)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.discardPending(ctx, tab, abandoned)
	ev := Event{Type: EventSettlementCancelled, GroupID: groupID, TabID: tabID, Status: tab.Status}
	if abandoned != nil {
		ev.SettlementID = abandoned.ID
	}
	e.notify(ctx, ev)
	return tab, nil
}

// ApplyConfirmation marks one leg of the current settlement as confirmed.
// Confirming an already confirmed leg returns the tab unchanged.
func (e *Engine) ApplyConfirmation(ctx context.Context, groupID, tabID, settlementID, legID, txRef string) (*models.Tab, error) {
	var (
		leg       models.SettlementTransaction
		confirmed bool
	)
	tab, err := e.mutate(ctx, groupID, tabID, func(tab *models.Tab) error {
		confirmed = false
		s := tab.CurrentSettlement
		if s == nil {
			return settlementNotFound(tab, "tab has no current settlement")
		}
		if s.ID != settlementID {
			return settlementNotFound(tab, "settlement "+settlementID+" is not current")
		}
		l := s.Leg(legID)
		if l == nil {
			return settlementNotFound(tab, "leg "+legID+" is not part of settlement "+settlementID)
		}
		if l.Status == models.LegConfirmed {
			return errNoWrite
		}

		at := e.now().UTC()
		l.Status = models.LegConfirmed
		l.TxReference = txRef
		l.ConfirmedAt = &at
		leg = *l
		confirmed = true

		if s.ConfirmedCount() == len(s.Transactions) {
			s.Status = models.SettlementCompleted
			tab.Status = models.TabSettled
		} else if tab.Status == models.TabSettlementProposed {
			s.Status = models.SettlementInProgress
			tab.Status = models.TabSettling
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !confirmed {
		slog.Debug("Leg already confirmed", "group_id", groupID, "tab_id", tabID, "leg_id", legID)
		return tab, nil
	}

	// No-op when the leg was matched through the index.
	if err := e.matcher.Forget(ctx, []models.PendingTransfer{pendingEntry(tab, tab.CurrentSettlement, leg)}); err != nil {
		slog.Warn("Failed to forget confirmed leg", "leg_id", legID, "error", err)
	}

	e.metrics.LegConfirmed()
	slog.Info("Settlement leg confirmed", "group_id", groupID, "tab_id", tabID, "settlement_id", settlementID,
		"leg_id", legID, "tx_reference", txRef, "status", tab.Status)
	e.notify(ctx, Event{
		Type:         EventLegConfirmed,
		GroupID:      groupID,
		TabID:        tabID,
		Status:       tab.Status,
		SettlementID: settlementID,
		LegID:        legID,
		Amount:       leg.Amount.String(),
		FromName:     e.displayName(ctx, leg.FromMemberID, leg.FromAddress),
		ToName:       e.displayName(ctx, leg.ToMemberID, leg.ToAddress),
		TxReference:  txRef,
	})

	if tab.Status == models.TabSettled {
		e.metrics.TabSettled()
		slog.Info("Tab settled", "group_id", groupID, "tab_id", tabID)
		e.notify(ctx, Event{Type: EventTabSettled, GroupID: groupID, TabID: tabID, Status: tab.Status, SettlementID: settlementID})
	}
	return tab, nil
}

// MatchTransfer resolves an observed transfer to a pending leg and consumes
// it. A nil result with a nil error means the transfer is unrelated.
func (e *Engine) MatchTransfer(ctx context.Context, obs pending.Observation) (*models.PendingTransfer, error) {
	match, err := e.matcher.Match(ctx, obs)
	if errors.Is(err, pending.ErrInvalidObservation) {
		return nil, &Error{Kind: ErrValidation, Amount: obs.AtomicAmount, Err: err}
	}
	if err != nil {
		return nil, unavailable("", err)
	}
	e.metrics.TransferMatched(match != nil)
	return match, nil
}

// HandleTransfer matches an observed transfer and confirms the matched leg.
// It returns nil for transfers that match nothing.
func (e *Engine) HandleTransfer(ctx context.Context, obs pending.Observation) (*Confirmation, error) {
	match, err := e.MatchTransfer(ctx, obs)
	if err != nil || match == nil {
		return nil, err
	}

	tab, err := e.ApplyConfirmation(ctx, match.GroupID, match.TabID, match.SettlementID, match.LegID, obs.TxReference)
	if err != nil {
		slog.Warn("Matched transfer could not be applied", "group_id", match.GroupID, "tab_id", match.TabID,
			"settlement_id", match.SettlementID, "leg_id", match.LegID, "error", err)
		// The leg is still pending; put it back so a retry can match it.
		if errors.Is(err, ErrStorageUnavailable) {
			if rerr := e.matcher.Register(ctx, []models.PendingTransfer{*match}); rerr != nil {
				slog.Error("Failed to restore matched leg", "group_id", match.GroupID, "tab_id", match.TabID,
					"settlement_id", match.SettlementID, "leg_id", match.LegID, "error", rerr)
			}
		}
		return nil, err
	}
	return &Confirmation{Transfer: *match, Tab: tab}, nil
}

// SweepPending drops expired pending legs.
func (e *Engine) SweepPending(ctx context.Context) (int, error) {
	return e.matcher.Sweep(ctx)
}

func pendingEntries(tab *models.Tab, s *models.Settlement) []models.PendingTransfer {
	entries := make([]models.PendingTransfer, 0, len(s.Transactions))
	for _, leg := range s.Transactions {
		if leg.Status == models.LegPending {
			entries = append(entries, pendingEntry(tab, s, leg))
		}
	}
	return entries
}

func pendingEntry(tab *models.Tab, s *models.Settlement, leg models.SettlementTransaction) models.PendingTransfer {
	return models.PendingTransfer{
		GroupID:      tab.GroupID,
		TabID:        tab.ID,
		SettlementID: s.ID,
		LegID:        leg.ID,
		Sender:       leg.FromAddress,
		ToAddress:    leg.ToAddress,
		AtomicAmount: leg.AtomicAmount,
		AssetID:      s.AssetID,
	}
}
