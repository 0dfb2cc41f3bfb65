package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lexweave/depoflow/internal/adapter/postgres"
	"github.com/lexweave/depoflow/internal/config"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/port/database"
)

// runAdmin dispatches admin subcommands (grant-credits, firm-info, billing).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "grant-credits":
		return runAdminGrantCredits(args[1:])
	case "firm-info":
		return runAdminFirmInfo(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: depoflow admin <command> [options]

Commands:
  grant-credits    Credit a firm's processing balance
  firm-info        Show a firm's balance and settings
  help             Show this help message

Examples:
  depoflow admin grant-credits --firm 3f1c... --amount 100 --description "invoice #1042"
  depoflow admin firm-info --firm 3f1c...
`)
}

func loadAdminDeps() (*postgres.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}
	return postgres.NewStore(pool), cleanup, nil
}

func runAdminGrantCredits(args []string) error {
	fs := flag.NewFlagSet("grant-credits", flag.ContinueOnError)
	firmID := fs.String("firm", "", "firm ID (required)")
	amount := fs.Int64("amount", 0, "credits to add (required, positive)")
	description := fs.String("description", "manual grant", "billing record description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *firmID == "" {
		return fmt.Errorf("--firm is required")
	}
	if *amount <= 0 {
		return fmt.Errorf("--amount must be positive")
	}

	store, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	f, err := store.GetFirm(ctx, *firmID)
	if err != nil {
		return fmt.Errorf("look up firm: %w", err)
	}

	rec, err := store.SettleCredits(ctx, database.SettleRequest{
		FirmID:      f.ID,
		UserID:      f.OwnerID,
		Delta:       *amount,
		Type:        firm.BillingCreditPurchase,
		Description: *description,
	})
	if err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Granted %d credits to %s (balance %d -> %d)\n",
		*amount, f.Name, rec.BalanceBefore, rec.BalanceAfter)
	return nil
}

func runAdminFirmInfo(args []string) error {
	fs := flag.NewFlagSet("firm-info", flag.ContinueOnError)
	firmID := fs.String("firm", "", "firm ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *firmID == "" {
		return fmt.Errorf("--firm is required")
	}

	store, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := store.GetFirm(context.Background(), *firmID)
	if err != nil {
		return fmt.Errorf("look up firm: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCREDITS\tMAX_MEMBERS\tMAX_UPLOAD\tRETENTION_DAYS")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
		f.ID, f.Name, f.Credits, f.MaxMembers, f.Settings.MaxUploadSize, f.Settings.RetentionDays)
	return w.Flush()
}
