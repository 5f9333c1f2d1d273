package core

import "github.com/shopspring/decimal"

// Summary is the derived aggregate over one owner's records. It is never
// stored; TotalBalance is always TotalIncome minus TotalExpense.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	TotalBalance decimal.Decimal
}

// ChartPoint drives the income-vs-expense time series, one point per record.
type ChartPoint struct {
	Label   string
	Month   int // 1-12, from OccurredAt
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Summarize recomputes totals from a full record set. The sign of each
// contribution comes from Kind alone; unknown kinds contribute nothing.
func Summarize(records []TransactionRecord) Summary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, r := range records {
		switch r.Kind {
		case Income:
			income = income.Add(r.Amount)
		case Expense:
			expense = expense.Add(r.Amount)
		}
	}
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		TotalBalance: income.Sub(expense),
	}
}

// ChartSeries builds one point per record, in input order.
func ChartSeries(records []TransactionRecord) []ChartPoint {
	points := make([]ChartPoint, 0, len(records))
	for _, r := range records {
		p := ChartPoint{
			Label: r.Title,
			Month: int(r.OccurredAt.Month()),
		}
		switch r.Kind {
		case Income:
			p.Income = r.Amount
		case Expense:
			p.Expense = r.Amount
		}
		points = append(points, p)
	}
	return points
}
