// Command ledgerctl runs maintenance jobs against the ledger database.
package main

import (
	"os"

	"finance-ledger/cmd/ledgerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
