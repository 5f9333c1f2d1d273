// Command export-sheets writes one owner's monthly report to a Google
// spreadsheet and exits.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"finease/internal/config"
	"finease/internal/export"
	"finease/internal/ledger"
	"finease/internal/ledger/sqlite"
	applog "finease/internal/log"
)

func main() {
	_ = godotenv.Load()

	ownerID := flag.String("owner", "", "owner id to export records for")
	flag.Parse()

	logger := applog.New(applog.Config{Component: applog.ComponentExport})
	applog.SetDefault(logger)

	if *ownerID == "" {
		logger.Error("Missing -owner flag")
		os.Exit(1)
	}

	cfg := config.Load()
	if !cfg.SheetsExportEnabled() {
		logger.Error("Sheets export not configured - set GOOGLE_SPREADSHEET_ID and GOOGLE_CREDENTIAL_FILE")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var store ledger.Store
	sqliteStore, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", applog.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteStore.Close()
	store = sqliteStore

	records, err := store.List(ctx, *ownerID)
	if err != nil {
		logger.Error("Failed to list records", applog.FieldError, err.Error(), applog.FieldOwnerID, *ownerID)
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Info("No records to export", applog.FieldOwnerID, *ownerID)
		return
	}

	writer, err := export.NewSheetsWriter(ctx, cfg.GoogleCredentialFile, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Sheets writer", applog.FieldError, err.Error())
		os.Exit(1)
	}

	rows, err := writer.WriteReport(ctx, *ownerID, records)
	if err != nil {
		logger.Error("Failed to write report", applog.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Report exported",
		applog.FieldOwnerID, *ownerID,
		"records", len(records),
		"rows", rows,
		applog.FieldSheetsRef, cfg.GoogleSpreadsheetID+"!"+cfg.GoogleSheetName)
}
