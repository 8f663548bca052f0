package sonarr

import (
	"context"
	"fmt"
	"slices"

	"github.com/patrickmn/go-cache"
	"golift.io/starr/sonarr"

	"github.com/s0up4200/watcharr/media"
)

const (
	rootFolderCacheKey     = "root_folder"
	qualityProfileCacheKey = "quality_profile"

	seriesSearchCommand = "SeriesSearch"
)

// Add requests a show, returning its Sonarr id. Only the selected seasons are
// monitored, or every regular season when none are selected; specials never
// are. A show already in the library is rejected unless seasons are selected,
// in which case those seasons are switched to monitored and searched.
func (c *Client) Add(ctx context.Context, tmdbID int64, seasons []int) (int64, error) {
	found, err := c.lookup(ctx, tmdbID)
	if err != nil {
		return 0, err
	}

	existing, err := c.findSeries(ctx, found.TvdbID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		if len(seasons) == 0 {
			return 0, media.NewRejectedError("show %d is already in the library", tmdbID)
		}
		return c.monitorSeasons(ctx, existing, seasons)
	}

	rootFolder, err := c.resolveRootFolder(ctx)
	if err != nil {
		return 0, err
	}
	profileID, err := c.resolveQualityProfile(ctx)
	if err != nil {
		return 0, err
	}

	added, err := c.api.AddSeriesContext(ctx, &sonarr.AddSeriesInput{
		TvdbID:           found.TvdbID,
		Title:            found.Title,
		TitleSlug:        found.TitleSlug,
		QualityProfileID: profileID,
		RootFolderPath:   rootFolder,
		Monitored:        true,
		SeasonFolder:     true,
		Seasons:          selectSeasons(found.Seasons, seasons),
		AddOptions:       &sonarr.AddSeriesOptions{SearchForMissingEpisodes: true},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add show %d: %w", tmdbID, err)
	}
	if added == nil {
		return 0, media.NewRejectedError("sonarr returned no series for %d", tmdbID)
	}

	c.invalidateLibrary()
	c.logger.Info().
		Int64("tmdb_id", tmdbID).
		Int64("series_id", added.ID).
		Str("title", found.Title).
		Ints("seasons", seasons).
		Msg("Successfully added show")

	return added.ID, nil
}

// monitorSeasons turns on monitoring for additional seasons of a tracked
// series and triggers a search for it
func (c *Client) monitorSeasons(ctx context.Context, series *sonarr.Series, seasons []int) (int64, error) {
	known := make(map[int]bool, len(series.Seasons))
	for _, s := range series.Seasons {
		if s != nil {
			known[s.SeasonNumber] = true
		}
	}

	var missing []int
	for _, n := range seasons {
		if n <= 0 || !known[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("%w: %v not known for series %d", media.ErrInvalidSeason, missing, series.ID)
	}

	updated := make([]*sonarr.Season, 0, len(series.Seasons))
	for _, s := range series.Seasons {
		if s == nil {
			continue
		}
		updated = append(updated, &sonarr.Season{
			SeasonNumber: s.SeasonNumber,
			Monitored:    s.Monitored || slices.Contains(seasons, s.SeasonNumber),
		})
	}

	_, err := c.api.UpdateSeriesContext(ctx, &sonarr.AddSeriesInput{
		ID:               series.ID,
		TvdbID:           series.TvdbID,
		Title:            series.Title,
		TitleSlug:        series.TitleSlug,
		QualityProfileID: series.QualityProfileID,
		Path:             series.Path,
		Monitored:        true,
		SeasonFolder:     series.SeasonFolder,
		Tags:             series.Tags,
		Seasons:          updated,
	}, false)
	if err != nil {
		return 0, fmt.Errorf("failed to update seasons of series %d: %w", series.ID, err)
	}

	if _, err := c.api.SendCommandContext(ctx, &sonarr.CommandRequest{
		Name:     seriesSearchCommand,
		SeriesID: series.ID,
	}); err != nil {
		// The seasons are monitored already; Sonarr will pick them up on its next search
		c.logger.Warn().Err(err).Int64("series_id", series.ID).Msg("Failed to trigger series search")
	}

	c.invalidateLibrary()
	c.logger.Info().
		Int64("series_id", series.ID).
		Ints("seasons", seasons).
		Msg("Successfully updated season monitoring")

	return series.ID, nil
}

// selectSeasons builds the season list for a new series
func selectSeasons(available []*sonarr.Season, selected []int) []*sonarr.Season {
	out := make([]*sonarr.Season, 0, len(available))
	for _, s := range available {
		if s == nil {
			continue
		}
		monitored := s.SeasonNumber > 0 &&
			(len(selected) == 0 || slices.Contains(selected, s.SeasonNumber))
		out = append(out, &sonarr.Season{
			SeasonNumber: s.SeasonNumber,
			Monitored:    monitored,
		})
	}
	return out
}

func (c *Client) resolveRootFolder(ctx context.Context) (string, error) {
	if c.rootFolder != "" {
		return c.rootFolder, nil
	}
	if cached, ok := c.cache.Get(rootFolderCacheKey); ok {
		return cached.(string), nil
	}

	folders, err := c.api.GetRootFoldersContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get root folders: %w", err)
	}
	for _, folder := range folders {
		if folder != nil && folder.Path != "" {
			c.cache.Set(rootFolderCacheKey, folder.Path, cache.NoExpiration)
			return folder.Path, nil
		}
	}
	return "", media.NewRejectedError("sonarr has no root folder configured")
}

func (c *Client) resolveQualityProfile(ctx context.Context) (int64, error) {
	if c.qualityProfileID > 0 {
		return c.qualityProfileID, nil
	}
	if cached, ok := c.cache.Get(qualityProfileCacheKey); ok {
		return cached.(int64), nil
	}

	profiles, err := c.api.GetQualityProfilesContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get quality profiles: %w", err)
	}
	for _, profile := range profiles {
		if profile != nil && profile.ID > 0 {
			c.cache.Set(qualityProfileCacheKey, profile.ID, cache.NoExpiration)
			return profile.ID, nil
		}
	}
	return 0, media.NewRejectedError("sonarr has no quality profile configured")
}
