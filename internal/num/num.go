// Package num converts between the venue's fixed-point integer amounts and
// decimal values. Every price, size and balance on the wire is an integer
// scaled by 10^decimalPlaces; the decimal-places count comes from the market
// or asset the amount belongs to.
package num

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var one = decimal.New(1, 0)

var half = decimal.New(5, -1)

// ToDecimal converts a fixed-point integer string into its decimal value.
// Empty strings convert to zero; the venue omits zero-valued fields.
func ToDecimal(decimalPlaces int32, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid fixed-point amount %q", raw)
	}
	return decimal.NewFromBigInt(n, -decimalPlaces), nil
}

// ToInteger converts a decimal value into the venue's fixed-point integer
// representation, rounding half-down to the nearest integer.
func ToInteger(decimalPlaces int32, d decimal.Decimal) *big.Int {
	return roundHalfDown(d.Shift(decimalPlaces)).BigInt()
}

// ToIntegerString is ToInteger rendered for the wire.
func ToIntegerString(decimalPlaces int32, d decimal.Decimal) string {
	return ToInteger(decimalPlaces, d).String()
}

// roundHalfDown rounds to an integer, breaking exact .5 ties toward zero.
func roundHalfDown(d decimal.Decimal) decimal.Decimal {
	truncated := d.Truncate(0)
	frac := d.Sub(truncated).Abs()
	if frac.GreaterThan(half) {
		if d.IsNegative() {
			return truncated.Sub(one)
		}
		return truncated.Add(one)
	}
	return truncated
}
