package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrel-labs/rcpsched/internal/cli"
	"github.com/kestrel-labs/rcpsched/internal/db"
	"github.com/kestrel-labs/rcpsched/internal/observability"
	"github.com/kestrel-labs/rcpsched/internal/runstore"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbPath := os.Getenv("RCPS_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".rcps", "rcps.db")
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	var obs observability.Observer = observability.NoopObserver{}
	if os.Getenv("RCPS_LOG_RUNS") != "" {
		obs = observability.NewLogObserver(os.Stderr)
	}

	app := &cli.App{
		Store:    runstore.New(database),
		Observer: obs,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}

	return cli.NewRootCmd(app).Execute()
}
