package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finease/internal/core"
)

// SheetsWriter writes monthly reports to a Google spreadsheet using a
// service account credential.
type SheetsWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsWriter builds a writer from a credential file and target
// spreadsheet. The sheet itself must already exist.
func NewSheetsWriter(ctx context.Context, credentialFile, spreadsheetID, sheetName string) (*SheetsWriter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	credentialsJSON, err := os.ReadFile(credentialFile)
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsWriter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// WriteReport aggregates records into monthly rows and appends them to the
// sheet under a header row, returning the number of data rows written.
func (w *SheetsWriter) WriteReport(ctx context.Context, ownerID string, records []core.TransactionRecord) (int, error) {
	if w.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	rows := MonthlyReport(records)
	values := ReportValues(ownerID, rows)

	rng := fmt.Sprintf("%s!A:F", w.sheetName)
	vr := &gsheet.ValueRange{Values: values}

	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append report to sheet %s: %w", w.sheetName, err)
	}

	return len(rows), nil
}

// ReportValues renders report rows as sheet cells: a header row followed by
// one row per month with owner, month name, totals and a timestamp.
func ReportValues(ownerID string, rows []MonthRow) [][]any {
	now := time.Now().UTC().Format(time.RFC3339)
	values := make([][]any, 0, len(rows)+1)
	values = append(values, []any{"Owner", "Month", "Income", "Expense", "Balance", "Exported At"})
	for _, row := range rows {
		values = append(values, []any{
			ownerID,
			MonthName(row.Month),
			row.Income.String(),
			row.Expense.String(),
			row.Balance.String(),
			now,
		})
	}
	return values
}
