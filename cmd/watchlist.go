package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/watcharr/filter"
	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/watchlist"
)

var (
	mediaTypeFlag string
	notesFlag     string
	seasonsFlag   string
	updateFlag    bool
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <tmdb-id>",
	Short: "Add a movie or show to the watchlist",
	Long: `Add a movie or show to the watchlist by its TMDB id.

Re-adding an existing item fails unless --update is given, in which case the
notes and season selection are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Remove entries from the watchlist",
	Long:  `Remove one or more watchlist entries by their watchlist id (see "watcharr list").`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List watchlist entries",
	Long: `List watchlist entries, optionally narrowed by a filter expression such as
'IsShow and not InLibrary' or 'daysSince(Added) > 30'.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// seasonsCmd represents the seasons command
var seasonsCmd = &cobra.Command{
	Use:   "seasons <tmdb-id> <n,n,...>",
	Short: "Select the seasons wanted for a show",
	Long: `Validate a season selection against Sonarr and store it on a watchlisted show.
An empty selection ("") means all seasons.`,
	Args: cobra.ExactArgs(2),
	RunE: runSeasons,
}

func init() {
	rootCmd.AddCommand(addCmd, removeCmd, listCmd, seasonsCmd)

	addCmd.Flags().StringVarP(&mediaTypeFlag, "type", "t", "movie", "media type (movie or show)")
	addCmd.Flags().StringVarP(&notesFlag, "notes", "n", "", "free text notes")
	addCmd.Flags().StringVarP(&seasonsFlag, "seasons", "s", "", "comma separated seasons for shows (default all)")
	addCmd.Flags().BoolVarP(&updateFlag, "update", "u", false, "update the entry if it already exists")

	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "filter expression")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	externalID, err := parseExternalID(args[0])
	if err != nil {
		return err
	}
	mt, err := media.ParseMediaType(mediaTypeFlag)
	if err != nil {
		return err
	}

	req := watchlist.AddRequest{
		ExternalID: externalID,
		MediaType:  mt,
		Update:     updateFlag,
	}
	if notesFlag != "" {
		req.Notes = &notesFlag
	}

	if seasonsFlag != "" {
		selected, err := media.ParseSeasons(seasonsFlag)
		if err != nil {
			return err
		}
		if mt == media.TypeShow {
			if selected, err = seasonManager.Validate(ctx, externalID, selected); err != nil {
				return err
			}
		}
		req.SelectedSeasons = selected
	}

	entry, err := repo.Add(ctx, req)
	if errors.Is(err, media.ErrDuplicate) {
		return fmt.Errorf("%w (use --update to replace it)", err)
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Added %s as #%d\n", entry.Key(), entry.ID)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 0)
		if err != nil {
			return fmt.Errorf("invalid watchlist id %q", arg)
		}
		ids = append(ids, uint(id))
	}

	if len(ids) == 1 {
		if err := repo.Remove(ctx, ids[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Removed #%d\n", ids[0])
		return nil
	}

	result := repo.RemoveBatch(ctx, ids)
	fmt.Printf("✓ Removed %d of %d entries\n", result.Deleted, result.Requested)
	for _, id := range result.Missing {
		fmt.Printf("  • #%d not found\n", id)
	}
	for id, err := range result.Failed {
		fmt.Printf("  ✗ #%d: %v\n", id, err)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	entries, err := selectEntries(cmd, listFilter)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No watchlist entries found.")
		return nil
	}

	fmt.Printf("\nFound %d entries:\n", len(entries))
	fmt.Println(strings.Repeat("-", 80))
	for _, entry := range entries {
		printEntry(entry)
	}
	return nil
}

func runSeasons(cmd *cobra.Command, args []string) error {
	externalID, err := parseExternalID(args[0])
	if err != nil {
		return err
	}
	selected, err := media.ParseSeasons(args[1])
	if err != nil {
		return err
	}

	entry, err := seasonManager.Select(cmd.Context(), externalID, selected)
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s now wants %s\n", entry.Key(), formatSeasons(entry.SelectedSeasons))
	return nil
}

// selectEntries lists the watchlist and applies an optional filter expression
func selectEntries(cmd *cobra.Command, expression string) ([]media.Entry, error) {
	entries, err := repo.List(cmd.Context())
	if err != nil {
		return nil, err
	}
	if expression == "" {
		return entries, nil
	}

	f, err := filter.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return filter.Select(cmd.Context(), f, entries)
}

func parseExternalID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", media.ErrInvalidExternalID, s)
	}
	return id, nil
}

func printEntry(entry media.Entry) {
	fmt.Printf("• #%-4d %-14s %-15s", entry.ID, entry.Key(), entry.Status.State)
	if entry.IsShow() {
		fmt.Printf(" seasons: %s", formatSeasons(entry.SelectedSeasons))
	}
	if entry.Status.Complete {
		fmt.Printf(" [COMPLETE]")
	}
	fmt.Println()
	if entry.Notes != nil && *entry.Notes != "" {
		fmt.Printf("  Notes: %s\n", *entry.Notes)
	}
}

func formatSeasons(seasons []int) string {
	if len(seasons) == 0 {
		return "all"
	}
	parts := make([]string, len(seasons))
	for i, n := range seasons {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
