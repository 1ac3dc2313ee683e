package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of decimal places in a major currency unit.
const MinorUnitExponent = 2

// Amount is a money value in minor units (cents).
type Amount int64

const (
	// MaxAmount bounds unit prices and line totals (ten billion in major
	// units). Subtotals of any bill that fits in a request stay far below
	// the int64 limit.
	MaxAmount Amount = 1_000_000_000_000

	// MaxQuantity bounds the quantity of a line item.
	MaxQuantity = 1_000_000
)

var maxAmountDecimal = decimal.NewFromInt(int64(MaxAmount))

// ParseAmount parses a decimal string in major units ("12.99") into minor
// units. Digits beyond the minor unit are rounded half away from zero.
// Magnitudes above MaxAmount are rejected with ErrInvalidInput.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", ErrInvalidInput, s, err)
	}
	a, ok := amountFromDecimal(d)
	if !ok {
		return 0, fmt.Errorf("%w: amount %q is out of range", ErrInvalidInput, s)
	}
	return a, nil
}

// amountFromDecimal rounds d to minor units. ok is false when the result
// exceeds MaxAmount in magnitude.
func amountFromDecimal(d decimal.Decimal) (Amount, bool) {
	minor := d.Shift(MinorUnitExponent).Round(0)
	if minor.Abs().GreaterThan(maxAmountDecimal) {
		return 0, false
	}
	return Amount(minor.IntPart()), true
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -MinorUnitExponent)
}

// String formats the amount in major units with two decimals, e.g. "21.98".
func (a Amount) String() string {
	return a.Decimal().StringFixed(MinorUnitExponent)
}
