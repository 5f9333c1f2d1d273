// Package view is the pure projection layer applied to the engine's record
// list before rendering: month filtering and a total sort order.
package view

import (
	"sort"

	"finease/internal/core"
)

const (
	DateAsc    SortKey = "dateAsc"
	DateDesc   SortKey = "dateDesc"
	AmountAsc  SortKey = "amountAsc"
	AmountDesc SortKey = "amountDesc"
)

type SortKey string

// IsValid reports whether k is a known sort key.
func (k SortKey) IsValid() bool {
	switch k {
	case DateAsc, DateDesc, AmountAsc, AmountDesc:
		return true
	}
	return false
}

// AllMonths disables month filtering.
const AllMonths = 0

// Project returns the records whose OccurredAt month matches monthFilter
// (AllMonths passes everything), ordered by sortKey. Ties are broken by ID
// ascending so the order is total and deterministic. The input slice is
// never mutated.
func Project(records []core.TransactionRecord, monthFilter int, sortKey SortKey) []core.TransactionRecord {
	out := make([]core.TransactionRecord, 0, len(records))
	for _, r := range records {
		if monthFilter != AllMonths && int(r.OccurredAt.Month()) != monthFilter {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch sortKey {
		case DateAsc:
			if !a.OccurredAt.Equal(b.OccurredAt) {
				return a.OccurredAt.Before(b.OccurredAt)
			}
		case DateDesc:
			if !a.OccurredAt.Equal(b.OccurredAt) {
				return a.OccurredAt.After(b.OccurredAt)
			}
		case AmountAsc:
			if !a.Amount.Equal(b.Amount) {
				return a.Amount.LessThan(b.Amount)
			}
		case AmountDesc:
			if !a.Amount.Equal(b.Amount) {
				return a.Amount.GreaterThan(b.Amount)
			}
		}
		return a.ID < b.ID
	})

	return out
}
