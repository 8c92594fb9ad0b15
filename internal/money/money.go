// Package money holds the fixed-point currency amount used across the API.
//
// Amounts are stored and summed as int64 minor units (cents). Decimal text
// only exists at the JSON boundary, where it is parsed and formatted with
// shopspring/decimal.
package money

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by an Amount.
const Scale = 2

// maxUnits bounds parsed amounts well inside int64 so sums cannot overflow.
const maxUnits = int64(1e15)

var (
	// ErrTooPrecise is returned for inputs with more than two fractional digits.
	ErrTooPrecise = errors.New("amount must have at most 2 decimal places")
	// ErrOutOfRange is returned for inputs too large to be a realistic amount.
	ErrOutOfRange = errors.New("amount is out of range")
)

// Amount is a currency value in minor units.
type Amount int64

// FromDecimal converts d to an Amount, rejecting extra precision.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Round(Scale).Equal(d) {
		return 0, ErrTooPrecise
	}
	units := d.Shift(Scale)
	if units.Abs().GreaterThan(decimal.NewFromInt(maxUnits)) {
		return 0, ErrOutOfRange
	}
	return Amount(units.IntPart()), nil
}

// Parse reads a decimal string such as "12.5" or "1200".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return FromDecimal(d)
}

// FromUnits builds an Amount from minor units.
func FromUnits(units int64) Amount { return Amount(units) }

// Units returns the amount in minor units.
func (a Amount) Units() int64 { return int64(a) }

// IsPositive reports whether a is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// Decimal returns the amount as a decimal with two fractional digits.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// String formats the amount with exactly two fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// MarshalJSON encodes the amount as a bare JSON number, e.g. 45.00.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	data = bytes.Trim(data, `"`)
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds amounts in minor units.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, v := range amounts {
		total += v
	}
	return total
}
