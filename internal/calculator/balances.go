package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabsettle/internal/models"
)

// MemberBalance represents the balance information for one participant.
type MemberBalance struct {
	MemberID string
	Paid     decimal.Decimal // Total amount paid across all expenses
	Owed     decimal.Decimal // Total of this member's shares
	Net      decimal.Decimal // Positive = owed money, Negative = owes money
}

// ComputeBalances derives each participant's signed net balance from expenses.
//
// Algorithm:
//   - For each expense: payer is credited the full amount
//   - Each listed participant is debited their share (weighted or equal)
//   - net = credited - debited
//
// A payer who is also a participant nets out their own share naturally.
func ComputeBalances(expenses []models.Expense) (map[string]decimal.Decimal, error) {
	summary, err := Summarize(nil, expenses)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]decimal.Decimal, len(summary))
	for _, b := range summary {
		balances[b.MemberID] = b.Net
	}
	return balances, nil
}

// Summarize computes paid, owed and net per member. Members listed in order come
// first, in that order; anyone else referenced by an expense follows sorted by ID.
func Summarize(order []string, expenses []models.Expense) ([]MemberBalance, error) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		if b, ok := balances[id]; ok {
			return b
		}
		b := &MemberBalance{MemberID: id, Paid: decimal.Zero, Owed: decimal.Zero}
		balances[id] = b
		return b
	}
	for _, id := range order {
		get(id)
	}

	for _, e := range expenses {
		shares, err := CalculateShares(e.Amount, e.ParticipantIDs, e.Weights)
		if err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}

		payer := get(e.PayerID)
		payer.Paid = payer.Paid.Add(e.Amount)

		for _, s := range shares {
			b := get(s.MemberID)
			b.Owed = b.Owed.Add(s.Amount)
		}
	}

	result := make([]MemberBalance, 0, len(balances))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, *balances[id])
	}
	var rest []string
	for id := range balances {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		result = append(result, *balances[id])
	}

	for i := range result {
		result[i].Net = result[i].Paid.Sub(result[i].Owed)
	}
	return result, nil
}
