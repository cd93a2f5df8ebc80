// Package cmd holds the ledgerctl subcommands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"finance-ledger/internal/config"
	"finance-ledger/internal/database"
	"finance-ledger/internal/ledger"
	"finance-ledger/internal/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	debug    bool
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Maintenance tool for the finance ledger",
	Long: `ledgerctl works directly on the ledger database configured in
config.yaml (or FLG_* environment variables).

Example:
  ledgerctl reconcile --dry-run
  ledgerctl balance --user 1 --account 3 --date 2024-01-31`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.ParseLevel(logLevel)
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "shorthand for --log-level debug")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(balanceCmd)
}

// openService loads config and opens the migrated database.
func openService() (*ledger.Service, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	slog.Debug("opening database", "driver", cfg.Database.Driver, "path", cfg.Database.Path)

	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return ledger.NewService(db,
		ledger.WithLogger(slog.Default()),
		ledger.WithOpeningBalanceCategory(cfg.Ledger.OpeningBalanceCategory),
	), nil
}

func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
