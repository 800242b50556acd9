package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidSplit is returned when an expense cannot be divided among its participants.
var ErrInvalidSplit = errors.New("invalid split")

// Share is one participant's portion of an expense.
type Share struct {
	MemberID string
	Amount   decimal.Decimal
}

// CalculateShares divides amount among participants according to weights.
// Empty weights means an equal split.
//
// Algorithm: share_i = amount × weight_i / sum(weights). The last participant
// receives amount minus the other shares so the shares always sum to amount exactly.
func CalculateShares(amount decimal.Decimal, participants []string, weights []decimal.Decimal) ([]Share, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %s must be positive", ErrInvalidSplit, amount)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: must have at least one participant", ErrInvalidSplit)
	}
	if len(weights) > 0 && len(weights) != len(participants) {
		return nil, fmt.Errorf("%w: %d weights for %d participants", ErrInvalidSplit, len(weights), len(participants))
	}

	total := decimal.NewFromInt(int64(len(participants)))
	weighted := len(weights) > 0
	if weighted {
		total = decimal.Zero
		for i, w := range weights {
			if !w.IsPositive() {
				return nil, fmt.Errorf("%w: weight %s for %s must be positive", ErrInvalidSplit, w, participants[i])
			}
			total = total.Add(w)
		}
	}

	shares := make([]Share, len(participants))
	allocated := decimal.Zero
	last := len(participants) - 1
	for i, p := range participants {
		if i == last {
			shares[i] = Share{MemberID: p, Amount: amount.Sub(allocated)}
			break
		}
		weight := decimal.NewFromInt(1)
		if weighted {
			weight = weights[i]
		}
		share := amount.Mul(weight).Div(total)
		allocated = allocated.Add(share)
		shares[i] = Share{MemberID: p, Amount: share}
	}

	return shares, nil
}
