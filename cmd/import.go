package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/watcharr/overseerr"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import open Overseerr requests into the watchlist",
	Long: `Fetch every request from the configured Overseerr instance and add the
open ones to the watchlist. Declined and failed requests are ignored and
entries already on the watchlist are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if !cfg.Overseerr.Enabled() {
		return fmt.Errorf("overseerr.url is not configured")
	}

	source, err := overseerr.NewClient(cfg.Overseerr, logger)
	if err != nil {
		return err
	}

	result, err := overseerr.NewImporter(source, repo, logger).Import(cmd.Context())
	if result == nil {
		return err
	}

	fmt.Printf("Fetched %d requests\n", result.Fetched)
	for _, key := range result.Added {
		fmt.Printf("✓ Added %s\n", key)
	}
	for key, reason := range result.Skipped {
		fmt.Printf("  • Skipped %s: %s\n", key, reason)
	}

	fmt.Printf("\nSummary: %d added, %d skipped\n", len(result.Added), len(result.Skipped))
	return err
}
