package calculator

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tabsettle/internal/models"
)

func expense(payer, amount string, participants []string, weights ...string) models.Expense {
	e := models.Expense{
		ID:             payer + "-" + amount,
		PayerID:        payer,
		Amount:         dec(amount),
		ParticipantIDs: participants,
	}
	if len(weights) > 0 {
		e.Weights = decs(weights...)
	}
	return e
}

func TestComputeBalances(t *testing.T) {
	abc := []string{"A", "B", "C"}

	t.Run("three payers equal split", func(t *testing.T) {
		balances, err := ComputeBalances([]models.Expense{
			expense("A", "60", abc),
			expense("B", "30", abc),
			expense("C", "15", abc),
		})
		require.NoError(t, err)

		assert.True(t, balances["A"].Equal(dec("25")), "A = %s", balances["A"])
		assert.True(t, balances["B"].Equal(dec("-5")), "B = %s", balances["B"])
		assert.True(t, balances["C"].Equal(dec("-20")), "C = %s", balances["C"])
	})

	t.Run("weighted split", func(t *testing.T) {
		balances, err := ComputeBalances([]models.Expense{
			expense("A", "100", abc, "2", "1", "1"),
		})
		require.NoError(t, err)

		assert.True(t, balances["A"].Equal(dec("50")))
		assert.True(t, balances["B"].Equal(dec("-25")))
		assert.True(t, balances["C"].Equal(dec("-25")))
	})

	t.Run("payer only participant nets to zero", func(t *testing.T) {
		balances, err := ComputeBalances([]models.Expense{
			expense("A", "100", []string{"A"}),
		})
		require.NoError(t, err)
		assert.True(t, balances["A"].IsZero())
	})

	t.Run("payer outside participants", func(t *testing.T) {
		balances, err := ComputeBalances([]models.Expense{
			expense("A", "40", []string{"B", "C"}),
		})
		require.NoError(t, err)
		assert.True(t, balances["A"].Equal(dec("40")))
		assert.True(t, balances["B"].Equal(dec("-20")))
		assert.True(t, balances["C"].Equal(dec("-20")))
	})

	t.Run("invalid expense surfaces error", func(t *testing.T) {
		_, err := ComputeBalances([]models.Expense{
			expense("A", "40", []string{"B", "C"}, "1"),
		})
		assert.ErrorIs(t, err, ErrInvalidSplit)
	})

	t.Run("no expenses", func(t *testing.T) {
		balances, err := ComputeBalances(nil)
		require.NoError(t, err)
		assert.Empty(t, balances)
	})
}

func TestSummarize_Order(t *testing.T) {
	summary, err := Summarize([]string{"C", "A", "B"}, []models.Expense{
		expense("A", "30", []string{"A", "B", "C"}),
		expense("Z", "10", []string{"Y"}),
	})
	require.NoError(t, err)

	ids := make([]string, len(summary))
	for i, b := range summary {
		ids[i] = b.MemberID
	}
	assert.Equal(t, []string{"C", "A", "B", "Y", "Z"}, ids)

	a := summary[1]
	assert.True(t, a.Paid.Equal(dec("30")))
	assert.True(t, a.Owed.Equal(dec("10")))
	assert.True(t, a.Net.Equal(dec("20")))
}

func randomExpenses(r *rand.Rand, members []string, n int) []models.Expense {
	expenses := make([]models.Expense, n)
	for i := range expenses {
		// Random non-empty subset.
		var participants []string
		var weights []string
		for _, m := range members {
			if r.Intn(2) == 0 {
				participants = append(participants, m)
				weights = append(weights, strconv.Itoa(r.Intn(5)+1))
			}
		}
		if len(participants) == 0 {
			participants = []string{members[r.Intn(len(members))]}
			weights = []string{"1"}
		}
		cents := decimal.New(int64(r.Intn(100000)+1), -2)
		e := models.Expense{
			ID:             strconv.Itoa(i),
			PayerID:        members[r.Intn(len(members))],
			Amount:         cents,
			ParticipantIDs: participants,
		}
		if r.Intn(2) == 0 {
			e.Weights = decs(weights...)
		}
		expenses[i] = e
	}
	return expenses
}

func TestComputeBalances_Conservation(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	members := []string{"A", "B", "C", "D", "E"}

	for round := 0; round < 50; round++ {
		balances, err := ComputeBalances(randomExpenses(r, members, 1+r.Intn(12)))
		require.NoError(t, err)

		sum := decimal.Zero
		for _, b := range balances {
			sum = sum.Add(b)
		}
		assert.True(t, sum.IsZero(), "round %d: balances sum to %s", round, sum)
	}
}
