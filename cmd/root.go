package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelfscan",
		Short: "Secondhand book cataloging with LLM-powered cover identification",
		Long: `Shelfscan catalogs secondhand books from photographs of their covers.

It identifies title, author, and shelving categories with a vision-capable LLM,
writes a short sales synopsis, and exports the curated catalog as a bulk-import
feed (CSV + images) for the storefront.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProcessCmd())

	return cmd
}
