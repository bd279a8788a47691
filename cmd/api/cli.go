package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/logger"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/domain"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/version"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitMigrate = 4
	exitRun     = 5
	exitPartial = 6
)

var (
	migrateRunner = realMigrateRunner
	runOnceRunner = realRunOnceRunner
	osExit        = os.Exit
	stdout        io.Writer = os.Stdout
)

func handleCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "migrate":
		osExit(runMigrate(args[1:]))
		return true
	case "run-once":
		osExit(runOnce(args[1:]))
		return true
	case "version":
		fmt.Fprintln(stdout, version.String())
		osExit(exitOK)
		return true
	case "help", "-h", "--help":
		printHelp()
		osExit(exitOK)
		return true
	default:
		return false
	}
}

func runMigrate(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing migrate subcommand (up|down|status)")
		return exitUsage
	}
	subcmd := args[0]
	switch subcmd {
	case "up", "down", "status":
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate subcommand: %s\n", subcmd)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if err := migrateRunner(subcmd, cfg.DatabaseURL); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", subcmd, err)
		return exitMigrate
	}
	return exitOK
}

func realMigrateRunner(subcmd, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	const migrationsDir = "./migrations"

	switch subcmd {
	case "up":
		return goose.Up(db, migrationsDir)
	case "down":
		return goose.Down(db, migrationsDir)
	case "status":
		return goose.Status(db, migrationsDir)
	default:
		return fmt.Errorf("unsupported migrate subcommand %q", subcmd)
	}
}

// runOnce executes a single dispatch run and prints the JSON report, for
// hosts that schedule the binary directly instead of calling the endpoint.
func runOnce(args []string) int {
	fs := flag.NewFlagSet("run-once", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	strict := fs.Bool("strict", false, "exit non-zero when any shop reports an error")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runOnceRunner(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		return exitRun
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
		return exitRun
	}

	if *strict {
		for _, r := range report.Results {
			if !r.OK() {
				return exitPartial
			}
		}
	}
	return exitOK
}

func realRunOnceRunner(ctx context.Context, cfg config.Config) (domain.Report, error) {
	log := logger.New(cfg)
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return domain.Report{}, fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	eng, err := reviews.NewEngine(pool, cfg, log)
	if err != nil {
		return domain.Report{}, err
	}
	return eng.Run(ctx)
}

func printHelp() {
	fmt.Fprintln(stdout, "Review mailer")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Usage:")
	fmt.Fprintln(stdout, "  api                     Start API server")
	fmt.Fprintln(stdout, "  api migrate up          Apply all pending migrations")
	fmt.Fprintln(stdout, "  api migrate down        Roll back one migration")
	fmt.Fprintln(stdout, "  api migrate status      Show migration status")
	fmt.Fprintln(stdout, "  api run-once [-strict]  Send due review emails once and print the report")
	fmt.Fprintln(stdout, "  api version             Print the build version")
}
