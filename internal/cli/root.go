// Package cli implements the receiptsplit command line.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "receiptsplit",
	Short: "Split a restaurant receipt between the people who shared it",
	Long: `receiptsplit turns a receipt into line items, lets you assign each item
to the people who shared it and computes what everyone owes, to the cent.

Run "receiptsplit serve" for the web app and API, or "receiptsplit split"
to split an extraction file from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
