package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/util"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	reconcileUser   uint
	reconcileDryRun bool
	reconcileFormat string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute stored balances from the ledger entries",
	Long: `Recompute every active account's balance from its incomes, expenses
and transfers and overwrite the stored balance where it has drifted.

Example:
  ledgerctl reconcile
  ledgerctl reconcile --user 2 --dry-run --format yaml`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().UintVar(&reconcileUser, "user", 0, "only this user's accounts (default all users)")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report drift without fixing it")
	reconcileCmd.Flags().StringVar(&reconcileFormat, "format", "text", "output format: text or yaml")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if reconcileFormat != "text" && reconcileFormat != "yaml" {
		return fmt.Errorf("unknown format %q", reconcileFormat)
	}
	svc, err := openService()
	exitOnError(err, "failed to open ledger")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := svc.Reconcile(ctx, ledger.ReconcileOptions{UserID: reconcileUser, DryRun: reconcileDryRun})
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report, reconcileFormat)
}

func writeReport(w io.Writer, report *ledger.ReconcileReport, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	verb := "corrected"
	if report.DryRun {
		verb = "drifted"
	}
	fmt.Fprintf(w, "checked %d accounts, %d %s\n", report.Checked, len(report.Corrections), verb)
	for _, c := range report.Corrections {
		fmt.Fprintf(w, "  user %d account %d (%s): %s -> %s\n",
			c.UserID, c.AccountID, c.Name, util.FormatAmount(c.Old), util.FormatAmount(c.New))
	}
	return nil
}
