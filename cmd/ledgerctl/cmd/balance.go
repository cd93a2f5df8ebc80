package cmd

import (
	"context"
	"fmt"

	"finance-ledger/internal/util"

	"github.com/spf13/cobra"
)

var (
	balanceUser    uint
	balanceAccount uint
	balanceDate    string
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show historical balances",
	Long: `Show an account's balance, or the user's net worth when no account
is given, as of the end of a date.

Example:
  ledgerctl balance --user 1 --date 2024-01-31
  ledgerctl balance --user 1 --account 3`,
	RunE: runBalance,
}

func init() {
	balanceCmd.Flags().UintVar(&balanceUser, "user", 0, "owner of the accounts (required)")
	balanceCmd.Flags().UintVar(&balanceAccount, "account", 0, "account id (default net worth)")
	balanceCmd.Flags().StringVar(&balanceDate, "date", "", "YYYY-MM-DD (default today)")
	_ = balanceCmd.MarkFlagRequired("user")
}

func runBalance(cmd *cobra.Command, args []string) error {
	on := util.Today()
	if balanceDate != "" {
		d, err := util.ParseDate(balanceDate)
		if err != nil {
			return err
		}
		on = d
	}

	svc, err := openService()
	exitOnError(err, "failed to open ledger")
	ctx := context.Background()
	out := cmd.OutOrStdout()

	if balanceAccount != 0 {
		b, err := svc.BalanceAsOf(ctx, balanceUser, balanceAccount, on)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  account %d  %s\n", on.Format("2006-01-02"), balanceAccount, util.FormatAmount(b))
		return nil
	}

	nw, err := svc.NetWorthAsOf(ctx, balanceUser, on)
	if err != nil {
		return err
	}
	for _, a := range nw.Accounts {
		fmt.Fprintf(out, "%-24s %-10s %14s\n", a.Name, a.Type, util.FormatAmount(a.Balance))
	}
	fmt.Fprintf(out, "%-24s %-10s %14s\n", "net worth "+on.Format("2006-01-02"), "", util.FormatAmount(nw.Total))
	return nil
}
