package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for non-positive or over-precise amounts.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(math.MaxInt64).Div(hundred).Floor()
)

// ParseAmount converts a rupee amount into paise. It must be > 0 and carry
// at most two decimal places.
func ParseAmount(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return 0, ErrInvalidAmount
	}
	if d.GreaterThan(maxAmount) {
		return 0, ErrInvalidAmount
	}
	return d.Mul(hundred).IntPart(), nil
}

// FormatAmount renders paise as a two-decimal rupee string.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
