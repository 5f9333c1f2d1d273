// Package core holds the transaction domain model and the pure aggregation
// arithmetic derived from it.
//
// This file contains amount parsing and the defensive coercion applied to
// values read back from a store.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Returns
// ErrInvalidAmount for malformed input, zero, or negative values.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// CoerceAmount converts a raw stored value to an amount, treating anything
// malformed or missing as zero so a single bad record cannot poison a sum.
func CoerceAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}
