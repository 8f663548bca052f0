package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/watcharr/media"
)

// fulfillCmd represents the fulfill command
var fulfillCmd = &cobra.Command{
	Use:   "fulfill [[type:]tmdb-id...]",
	Short: "Request missing watchlist entries from Radarr and Sonarr",
	Long: `Add watchlist entries to Radarr or Sonarr and start a search for them.

Without arguments every entry matching --filter is submitted. The default
filter selects entries that are not known to be in the library. Shows are
added with their selected seasons monitored.

Ids may be qualified with their type ("movie:603", "show:1399") when a movie
and a show share a TMDB id; bare ids use --type when it is set.`,
	RunE: runFulfill,
}

func init() {
	rootCmd.AddCommand(fulfillCmd)

	fulfillCmd.Flags().StringVarP(&fulfillFilter, "filter", "f", "not InLibrary", "filter expression selecting entries to submit")
	fulfillCmd.Flags().StringVarP(&fulfillType, "type", "t", "", "only submit this media type (movie or show)")
	fulfillCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be submitted without adding anything")
}

var fulfillType string

func runFulfill(cmd *cobra.Command, args []string) error {
	entries, err := selectEntries(cmd, fulfillFilter)
	if err != nil {
		return err
	}

	if len(args) > 0 || fulfillType != "" {
		entries, err = matchKeys(entries, args, fulfillType)
		if err != nil {
			return err
		}
	}

	if len(entries) == 0 {
		fmt.Println("Nothing to submit.")
		return nil
	}

	if dryRun {
		fmt.Printf("\n[DRY RUN] Would submit %d entries:\n", len(entries))
		fmt.Println(strings.Repeat("-", 80))
		for _, entry := range entries {
			printEntry(entry)
		}
		return nil
	}

	fmt.Printf("Submitting %d entries...\n", len(entries))
	result, err := pipeline.Submit(cmd.Context(), entries)
	if result == nil {
		return err
	}

	for _, key := range result.Succeeded {
		fmt.Printf("✓ %s added (backend id %d)\n", key, result.BackendIDs[key])
	}
	for key, reason := range result.Failed {
		fmt.Printf("✗ %s: %s\n", key, reason)
	}

	fmt.Printf("\nSummary: %d succeeded, %d failed\n", len(result.Succeeded), len(result.Failed))

	if err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// matchKeys keeps the entries named by args. An arg is "<id>" or
// "<type>:<id>"; a bare id matches any type unless defaultType is set.
// No args keeps every entry of defaultType.
func matchKeys(entries []media.Entry, args []string, defaultType string) ([]media.Entry, error) {
	var mt media.MediaType
	if defaultType != "" {
		var err error
		if mt, err = media.ParseMediaType(defaultType); err != nil {
			return nil, err
		}
	}

	keys := make([]media.Key, 0, len(args))
	for _, arg := range args {
		key := media.Key{MediaType: mt}
		idPart := arg
		if typePart, rest, ok := strings.Cut(arg, ":"); ok {
			t, err := media.ParseMediaType(typePart)
			if err != nil {
				return nil, err
			}
			key.MediaType = t
			idPart = rest
		}

		id, err := parseExternalID(idPart)
		if err != nil {
			return nil, err
		}
		key.ExternalID = id
		keys = append(keys, key)
	}

	return slices.DeleteFunc(entries, func(e media.Entry) bool {
		if len(keys) == 0 {
			return e.MediaType != mt
		}
		return !slices.ContainsFunc(keys, func(k media.Key) bool {
			return k.ExternalID == e.ExternalID && (k.MediaType == "" || k.MediaType == e.MediaType)
		})
	}), nil
}
