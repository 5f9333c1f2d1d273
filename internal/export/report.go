// Package export builds monthly income/expense reports from a record set
// and writes them out to Google Sheets.
package export

import (
	"github.com/shopspring/decimal"

	"finease/internal/core"
)

// MonthRow is one month's aggregate line in a report.
type MonthRow struct {
	Month   int
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name for a 1-based month number.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return "Unknown"
	}
	return monthNames[month-1]
}

// MonthlyReport aggregates records into per-month rows, ordered January
// through December. Months with no records are omitted.
func MonthlyReport(records []core.TransactionRecord) []MonthRow {
	var (
		income  [13]decimal.Decimal
		expense [13]decimal.Decimal
		seen    [13]bool
	)
	for _, r := range records {
		m := int(r.OccurredAt.Month())
		seen[m] = true
		switch r.Kind {
		case core.Income:
			income[m] = income[m].Add(r.Amount)
		case core.Expense:
			expense[m] = expense[m].Add(r.Amount)
		}
	}

	rows := make([]MonthRow, 0, 12)
	for m := 1; m <= 12; m++ {
		if !seen[m] {
			continue
		}
		rows = append(rows, MonthRow{
			Month:   m,
			Income:  income[m],
			Expense: expense[m],
			Balance: income[m].Sub(expense[m]),
		})
	}
	return rows
}
