// Package money holds the fixed-scale decimal helpers used for prices and totals.
package money

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits carried by every monetary value.
const Scale = 2

// Zero is a zero amount at Scale.
var Zero = decimal.New(0, -Scale)

// Round rounds d to Scale digits, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Parse reads a decimal string and rounds it to Scale.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return Round(d), nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Extend returns unit × qty at Scale.
func Extend(unit decimal.Decimal, qty int) decimal.Decimal {
	return Round(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
