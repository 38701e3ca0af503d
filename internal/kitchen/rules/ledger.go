package rules

import "github.com/shopspring/decimal"

// ApplyDelta returns the new running total after applying delta.
// Credits are added as-is; debits are floored at zero.
func ApplyDelta(current, delta decimal.Decimal) decimal.Decimal {
	next := current.Add(delta)
	if delta.IsNegative() && next.IsNegative() {
		return decimal.Zero
	}
	return next
}

// CreatesEntry reports whether a delta against an unknown product should
// open a new inventory entry. Only credits do.
func CreatesEntry(delta decimal.Decimal) bool {
	return delta.IsPositive()
}
