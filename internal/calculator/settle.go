package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance is a participant's signed net amount.
type Balance struct {
	MemberID string
	Amount   decimal.Decimal
}

// Transfer is a payment from a debtor to a creditor.
type Transfer struct {
	From     string // Person who owes
	To       string // Person who is owed
	Amount   decimal.Decimal
	Currency string
}

// BalancesFromMap converts a balance map into a slice sorted by member ID.
func BalancesFromMap(m map[string]decimal.Decimal) []Balance {
	out := make([]Balance, 0, len(m))
	for id, amt := range m {
		out = append(out, Balance{MemberID: id, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// Optimize computes transfers that bring every balance to within epsilon of zero.
//
// Greedy algorithm: sort debtors and creditors by magnitude (largest first, ties
// by member ID), then repeatedly match the largest remaining debtor with the
// largest remaining creditor for min(owed, due). Each step resolves at least one
// side, so n balances yield at most n-1 transfers. Transfers not larger than
// epsilon are dropped.
func Optimize(balances []Balance, currency string, epsilon decimal.Decimal) []Transfer {
	type party struct {
		id        string
		remaining decimal.Decimal
	}

	var debtors, creditors []party
	for _, b := range balances {
		switch {
		case b.Amount.LessThan(epsilon.Neg()):
			debtors = append(debtors, party{id: b.MemberID, remaining: b.Amount.Neg()})
		case b.Amount.GreaterThan(epsilon):
			creditors = append(creditors, party{id: b.MemberID, remaining: b.Amount})
		}
	}

	byMagnitude := func(ps []party) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].remaining.Cmp(ps[j].remaining); c != 0 {
				return c > 0
			}
			return ps[i].id < ps[j].id
		}
	}
	sort.SliceStable(debtors, byMagnitude(debtors))
	sort.SliceStable(creditors, byMagnitude(creditors))

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]

		amount := decimal.Min(d.remaining, c.remaining)
		if amount.GreaterThan(epsilon) {
			transfers = append(transfers, Transfer{
				From:     d.id,
				To:       c.id,
				Amount:   amount,
				Currency: currency,
			})
		}

		d.remaining = d.remaining.Sub(amount)
		c.remaining = c.remaining.Sub(amount)

		if d.remaining.LessThanOrEqual(epsilon) {
			i++
		}
		if c.remaining.LessThanOrEqual(epsilon) {
			j++
		}
	}

	return transfers
}
