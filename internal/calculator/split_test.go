package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decs(ss ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		out[i] = dec(s)
	}
	return out
}

func TestCalculateShares(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		participants []string
		weights      []decimal.Decimal
		want         []string
		wantErr      bool
	}{
		{
			name:         "equal split among three",
			amount:       "60",
			participants: []string{"Alice", "Bob", "Charlie"},
			want:         []string{"20", "20", "20"},
		},
		{
			name:         "empty weights split equally",
			amount:       "60",
			participants: []string{"Alice", "Bob", "Charlie"},
			weights:      []decimal.Decimal{},
			want:         []string{"20", "20", "20"},
		},
		{
			name:         "weighted 2:1:1",
			amount:       "100",
			participants: []string{"Alice", "Bob", "Charlie"},
			weights:      decs("2", "1", "1"),
			want:         []string{"50", "25", "25"},
		},
		{
			name:         "fractional weights",
			amount:       "90",
			participants: []string{"Alice", "Bob"},
			weights:      decs("0.5", "1"),
			want:         []string{"30", "60"},
		},
		{
			name:         "single participant takes everything",
			amount:       "100",
			participants: []string{"Alice"},
			want:         []string{"100"},
		},
		{
			name:         "zero amount should error",
			amount:       "0",
			participants: []string{"Alice"},
			wantErr:      true,
		},
		{
			name:         "no participants should error",
			amount:       "10",
			participants: []string{},
			wantErr:      true,
		},
		{
			name:         "weights length mismatch should error",
			amount:       "10",
			participants: []string{"Alice", "Bob"},
			weights:      decs("1"),
			wantErr:      true,
		},
		{
			name:         "non-positive weight should error",
			amount:       "10",
			participants: []string{"Alice", "Bob"},
			weights:      decs("1", "0"),
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := CalculateShares(dec(tt.amount), tt.participants, tt.weights)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSplit)
				return
			}
			require.NoError(t, err)
			require.Len(t, shares, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, tt.participants[i], shares[i].MemberID)
				assert.True(t, shares[i].Amount.Equal(dec(w)), "%s share = %s, want %s", shares[i].MemberID, shares[i].Amount, w)
			}
		})
	}
}

func TestCalculateShares_SumsExactly(t *testing.T) {
	amount := dec("100")
	shares, err := CalculateShares(amount, []string{"Alice", "Bob", "Charlie"}, nil)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
		// 100/3 each, give or take the last digit of precision.
		assert.True(t, s.Amount.Sub(dec("33.3333")).Abs().LessThan(dec("0.0001")))
	}
	assert.True(t, sum.Equal(amount), "shares sum to %s", sum)
}
