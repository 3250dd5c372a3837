// Command sheets-check verifies that the configured service account can
// open the ledger spreadsheet and lists its yearly partitions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/GillJordan/Home-expense/internal/cli"
	"github.com/GillJordan/Home-expense/internal/config"
	"github.com/GillJordan/Home-expense/internal/core"
	gsheet "github.com/GillJordan/Home-expense/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	if cfg.SpreadsheetID == "" {
		fail("set SHEET_ID or GOOGLE_SPREADSHEET_ID")
	}
	key, err := cfg.ServiceKey()
	if err != nil {
		fail("set GOOGLE_SERVICE_KEY or GOOGLE_SERVICE_KEY_FILE: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:    cfg.SpreadsheetID,
		ServiceKey:       key,
		ValueInputOption: cfg.ValueInputOption,
	})
	if err != nil {
		fail("credentials: %v", err)
	}

	tabs, err := client.ListPartitions(ctx)
	if err != nil {
		fail("open spreadsheet %s: %v", cfg.SpreadsheetID, err)
	}

	fmt.Printf("Spreadsheet %s is reachable.\n", client.StoreID())
	years := 0
	for _, t := range tabs {
		marker := " "
		if core.IsPartitionName(t) {
			marker = "*"
			years++
		}
		fmt.Printf(" %s %s\n", marker, t)
	}
	fmt.Printf("%d tabs, %d yearly partitions (*)\n", len(tabs), years)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sheets-check: "+format+"\n", args...)
	os.Exit(1)
}
