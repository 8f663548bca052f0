package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Refresh the library status of watchlist entries",
	Long: `Ask Radarr and Sonarr which watchlist entries they already have and store
the answer on each entry. Entries neither backend could answer for are kept
as unknown and listed separately.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFilter, "filter", "f", "", "only reconcile entries matching this filter expression")
}

func runStatus(cmd *cobra.Command, args []string) error {
	entries, err := selectEntries(cmd, statusFilter)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No watchlist entries to check.")
		return nil
	}

	fmt.Printf("Checking %d entries...\n", len(entries))
	result, err := reconciler.Reconcile(cmd.Context(), entries)
	if result == nil {
		return err
	}

	fmt.Println(strings.Repeat("-", 80))
	for _, entry := range result.Entries {
		printEntry(entry)
	}

	fmt.Printf("\nResolved %d entries", result.Resolved())
	if len(result.Unresolved) > 0 {
		fmt.Printf(", %d unresolved:\n", len(result.Unresolved))
		for _, key := range result.Unresolved {
			fmt.Printf("  • %s\n", key)
		}
	} else {
		fmt.Println()
	}

	if err != nil {
		return fmt.Errorf("status check interrupted: %w", err)
	}
	return nil
}
