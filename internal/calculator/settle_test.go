package calculator

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tabsettle/internal/models"
)

var epsilon = dec("0.01")

func balancesOf(pairs ...string) []Balance {
	var out []Balance
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Balance{MemberID: pairs[i], Amount: dec(pairs[i+1])})
	}
	return out
}

func TestOptimize(t *testing.T) {
	tests := []struct {
		name     string
		balances []Balance
		want     []Transfer
	}{
		{
			name:     "one creditor two debtors",
			balances: balancesOf("A", "25", "B", "-5", "C", "-20"),
			want: []Transfer{
				{From: "C", To: "A", Amount: dec("20"), Currency: "USDC"},
				{From: "B", To: "A", Amount: dec("5"), Currency: "USDC"},
			},
		},
		{
			name:     "two creditors one debtor",
			balances: balancesOf("A", "-30", "B", "10", "C", "20"),
			want: []Transfer{
				{From: "A", To: "C", Amount: dec("20"), Currency: "USDC"},
				{From: "A", To: "B", Amount: dec("10"), Currency: "USDC"},
			},
		},
		{
			name:     "ties broken by member id",
			balances: balancesOf("D", "-10", "B", "-10", "C", "10", "A", "10"),
			want: []Transfer{
				{From: "B", To: "A", Amount: dec("10"), Currency: "USDC"},
				{From: "D", To: "C", Amount: dec("10"), Currency: "USDC"},
			},
		},
		{
			name:     "all settled",
			balances: balancesOf("A", "0", "B", "0.005", "C", "-0.005"),
			want:     nil,
		},
		{
			name:     "dust below epsilon is dropped",
			balances: balancesOf("A", "10.004", "B", "-10", "C", "-0.004"),
			want: []Transfer{
				{From: "B", To: "A", Amount: dec("10"), Currency: "USDC"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Optimize(tt.balances, "USDC", epsilon)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].From, got[i].From, "transfer %d from", i)
				assert.Equal(t, tt.want[i].To, got[i].To, "transfer %d to", i)
				assert.True(t, tt.want[i].Amount.Equal(got[i].Amount), "transfer %d amount = %s, want %s", i, got[i].Amount, tt.want[i].Amount)
				assert.Equal(t, tt.want[i].Currency, got[i].Currency)
			}
		})
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	in := balancesOf("A", "15", "B", "15", "C", "-10", "D", "-10", "E", "-10")
	first := Optimize(in, "USDC", epsilon)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Optimize(in, "USDC", epsilon))
	}
}

// applyTransfers returns balances after each debtor pays and each creditor is paid.
func applyTransfers(balances map[string]decimal.Decimal, transfers []Transfer) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(balances))
	for id, b := range balances {
		out[id] = b
	}
	for _, tr := range transfers {
		out[tr.From] = out[tr.From].Add(tr.Amount)
		out[tr.To] = out[tr.To].Sub(tr.Amount)
	}
	return out
}

func TestOptimize_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	members := []string{"A", "B", "C", "D", "E", "F"}

	for round := 0; round < 100; round++ {
		balances, err := ComputeBalances(randomExpenses(r, members, 1+r.Intn(15)))
		require.NoError(t, err)

		transfers := Optimize(BalancesFromMap(balances), "USDC", epsilon)

		nonzero := 0
		absTotal := decimal.Zero
		for _, b := range balances {
			if !b.IsZero() {
				nonzero++
			}
			absTotal = absTotal.Add(b.Abs())
		}
		if nonzero > 0 {
			assert.LessOrEqual(t, len(transfers), nonzero-1, "round %d: too many transfers", round)
		}

		sent := decimal.Zero
		for _, tr := range transfers {
			assert.True(t, tr.Amount.GreaterThan(epsilon), "round %d: dust transfer %s", round, tr.Amount)
			assert.NotEqual(t, tr.From, tr.To)
			sent = sent.Add(tr.Amount)
		}
		// Balances under epsilon are never matched, so their dust may pool on one
		// counterparty; bound the leftovers by epsilon per member.
		tolerance := epsilon.Mul(decimal.NewFromInt(int64(len(members))))
		half := absTotal.Div(decimal.NewFromInt(2))
		assert.True(t, sent.Sub(half).Abs().LessThanOrEqual(tolerance),
			"round %d: sent %s, half imbalance %s", round, sent, half)

		for id, rest := range applyTransfers(balances, transfers) {
			assert.True(t, rest.Abs().LessThanOrEqual(tolerance), "round %d: %s left with %s", round, id, rest)
		}
	}
}

func TestOptimize_ScenarioFromExpenses(t *testing.T) {
	abc := []string{"A", "B", "C"}
	balances, err := ComputeBalances([]models.Expense{
		expense("A", "60", abc),
		expense("B", "30", abc),
		expense("C", "15", abc),
	})
	require.NoError(t, err)

	transfers := Optimize(BalancesFromMap(balances), "USDC", epsilon)
	require.Len(t, transfers, 2)
	assert.Equal(t, "C", transfers[0].From)
	assert.Equal(t, "A", transfers[0].To)
	assert.True(t, transfers[0].Amount.Equal(dec("20")))
	assert.Equal(t, "B", transfers[1].From)
	assert.Equal(t, "A", transfers[1].To)
	assert.True(t, transfers[1].Amount.Equal(dec("5")))
}
