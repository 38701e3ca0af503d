// Package rules holds the kitchen sheet rules: dose-code matching, batch-code
// generation, inventory ledger arithmetic and stock classification. Nothing in
// here touches a store; callers pass in the rows they read.
package rules

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseQuantity parses a raw cell value as a number.
// A blank cell counts as zero, the same way the sheet host coerces it.
func ParseQuantity(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// QuantityOrZero parses raw and falls back to zero for non-numeric values.
func QuantityOrZero(raw string) decimal.Decimal {
	d, ok := ParseQuantity(raw)
	if !ok {
		return decimal.Zero
	}
	return d
}
