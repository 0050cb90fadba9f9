// Command bookmarks runs the bookmarks REST API and manages its database schema.
package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bookmarks",
		Short:         "A multi-user bookmarks REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())

	return rootCmd
}

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}
