package main

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ebike_tours/internal/adapters/observability"
	"ebike_tours/internal/shared"
	mysqlrepo "ebike_tours/internal/storage/mysql"
)

// set by the release build
var version = "dev"

// cfg is loaded from the environment before any subcommand runs.
var cfg shared.Config

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "catalogctl",
	Short:         "Inspect the tour catalog from the command line.",
	Long:          `catalogctl reads the tour catalog the same way the website does and reports what it got.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		cfg = shared.Load()
		log.Logger = observability.NewLoggerTo(os.Stderr, cfg.AppEnv, "catalogctl")
		if noColor {
			color.NoColor = true
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(historyCmd)
}

// openFetchLog connects to MySQL and applies the fetch log migrations.
func openFetchLog(ctx context.Context, dsn string) (*mysqlrepo.Repo, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := mysqlrepo.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	repo := mysqlrepo.New(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, func() { _ = db.Close() }, nil
}
