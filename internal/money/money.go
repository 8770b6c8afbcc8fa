// Package money provides fixed-point decimal helpers for transaction
// amounts and processor fees. Binary floating point is never used for
// amount or fee values; fee rates remain ordinary float64.
package money

import (
	"github.com/shopspring/decimal"
)

// FeeDecimalPlaces is the minimum precision preserved when computing a
// processor fee from an amount and a fee rate.
const FeeDecimalPlaces = 4

// Fee computes amount * feeRate, preserving at least FeeDecimalPlaces
// decimal places. feeRate is a binary float (e.g. 0.025); it is converted
// through its decimal string representation so the multiplication itself
// stays entirely in decimal arithmetic.
func Fee(amount decimal.Decimal, feeRate float64) decimal.Decimal {
	rate := decimal.NewFromFloat(feeRate)
	return amount.Mul(rate).Round(FeeDecimalPlaces)
}

// Parse parses a decimal-string amount, e.g. "100.00".
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// Zero is the zero-value decimal amount.
var Zero = decimal.Zero
