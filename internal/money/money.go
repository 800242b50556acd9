// Package money provides exact decimal amount handling for settlement math.
package money

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the balance magnitude below which a participant counts as settled.
var DefaultEpsilon = decimal.New(1, -2)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownAsset  = errors.New("unknown asset")
)

// Parse parses a decimal string amount such as "12.50".
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParsePositive parses s and requires it to be strictly greater than zero.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, d.String())
	}
	return d, nil
}

// Settled reports whether |d| <= epsilon.
func Settled(d, epsilon decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(epsilon)
}

// Asset describes a settlement asset and its on-chain precision.
type Asset struct {
	Symbol   string
	Decimals int32
}

// ToAtomic converts a decimal amount to the asset's smallest unit.
// The amount must already be representable at the asset's precision.
func (a Asset) ToAtomic(amount decimal.Decimal) (string, error) {
	scaled := amount.Shift(a.Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("%w: %s has more than %d decimals for %s",
			ErrInvalidAmount, amount.String(), a.Decimals, a.Symbol)
	}
	return scaled.BigInt().String(), nil
}

// FromAtomic converts a smallest-unit integer string back to a decimal amount.
func (a Asset) FromAtomic(atomic string) (decimal.Decimal, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(atomic), 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: atomic %q", ErrInvalidAmount, atomic)
	}
	return decimal.NewFromBigInt(n, -a.Decimals), nil
}

// Round rounds an amount to the asset's precision, half away from zero.
func (a Asset) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(a.Decimals)
}

// Registry maps asset symbols (case-insensitive) to their definitions.
type Registry struct {
	assets map[string]Asset
}

// DefaultAssets are the stablecoins and native assets known without configuration.
var DefaultAssets = map[string]int32{
	"USDC": 6,
	"USDT": 6,
	"DAI":  18,
	"ETH":  18,
}

// NewRegistry builds a registry from symbol -> decimals.
func NewRegistry(decimals map[string]int32) *Registry {
	r := &Registry{assets: make(map[string]Asset, len(decimals))}
	for sym, d := range decimals {
		key := strings.ToUpper(sym)
		r.assets[key] = Asset{Symbol: key, Decimals: d}
	}
	return r
}

// Lookup returns the asset for symbol.
func (r *Registry) Lookup(symbol string) (Asset, error) {
	a, ok := r.assets[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnknownAsset, symbol)
	}
	return a, nil
}
