// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lakecheck",
		Short: "lakecheck - validation and aggregation for the customer/product/transaction lake",
		Long: `lakecheck walks a date=/hour= partitioned lake of gzip NDJSON files,
validates customers, products and transactions in every partition, and writes
the lake-wide customer ids and accepted product SKUs to a single output.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(NewRunCmd(), NewPartitionsCmd(), NewErasureCmd())

	return rootCmd
}
