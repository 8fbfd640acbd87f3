// Command record appends a single transaction from the shell, for quick
// entry without opening the dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/books"
	"github.com/yumao/kakeibo/internal/config"
	"github.com/yumao/kakeibo/internal/domain"
	"github.com/yumao/kakeibo/internal/logger"
	"github.com/yumao/kakeibo/internal/reconcile"
	"github.com/yumao/kakeibo/internal/sheets"
)

func main() {
	var (
		description = flag.String("desc", "", "transaction description (required)")
		amount      = flag.String("amount", "", "nominal amount (required)")
		kind        = flag.String("kind", "expense", "expense|reimbursable|income|fixed")
		account     = flag.String("account", "", "owning asset account")
		date        = flag.String("date", "", "date as YYYY-MM-DD (default today)")
		inflow      = flag.Bool("inflow", false, "fixed entries only: record as income")
	)
	flag.Parse()

	log := logger.New()

	if *description == "" || *amount == "" {
		flag.Usage()
		os.Exit(2)
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Str("amount", *amount).Msg("Invalid amount")
	}

	var day civil.Date
	if *date != "" {
		day, err = civil.ParseDate(*date)
		if err != nil {
			log.Fatal().Err(err).Str("date", *date).Msg("Invalid date, want YYYY-MM-DD")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	store, err := sheets.New(ctx, cfg.SheetsClientConfig(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to spreadsheet")
	}

	engine := reconcile.New(store, cfg.BudgetSchedule(), cfg.Assets.Liquid, log)
	snap, err := engine.Snapshot(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read spreadsheet state")
	}

	tx, err := books.New(store, log).Record(ctx, snap, books.RecordInput{
		Date:        day,
		Description: *description,
		Amount:      amt,
		Kind:        domain.ParseKind(*kind),
		Inflow:      *inflow,
		Account:     *account,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to record transaction")
	}

	fmt.Printf("recorded %s %s (%s)\n", tx.Description, tx.Amount.String(), tx.Kind)
}
