package sonarr

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golift.io/starr/sonarr"

	"github.com/s0up4200/watcharr/media"
)

// Status returns the library status of a single show, including its seasons
func (c *Client) Status(ctx context.Context, tmdbID int64) (*media.BackendStatus, error) {
	found, err := c.lookup(ctx, tmdbID)
	if err != nil {
		return nil, err
	}

	series, err := c.findSeries(ctx, found.TvdbID)
	if err != nil {
		return nil, err
	}
	if series != nil {
		return seriesStatus(tmdbID, series), nil
	}

	return &media.BackendStatus{
		ExternalID: tmdbID,
		MediaType:  media.TypeShow,
		Seasons:    seasonsOf(found),
	}, nil
}

// Seasons lists the regular seasons of a show. Specials are not listed.
func (c *Client) Seasons(ctx context.Context, tmdbID int64) ([]media.Season, error) {
	status, err := c.Status(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	return status.Seasons, nil
}

// BatchStatus resolves many shows against a snapshot of the library. Each id
// is mapped to a TVDB id with a concurrent lookup; ids whose lookup fails or
// finds nothing are left out of the result.
func (c *Client) BatchStatus(ctx context.Context, tmdbIDs []int64) (map[int64]*media.BackendStatus, error) {
	library, err := c.library(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	statuses := make(map[int64]*media.BackendStatus, len(tmdbIDs))

	var g errgroup.Group
	g.SetLimit(lookupConcurrency)

	for _, id := range dedupe(tmdbIDs) {
		g.Go(func() error {
			found, err := c.lookup(ctx, id)
			if err != nil {
				c.logger.Debug().Err(err).Int64("tmdb_id", id).Msg("Could not resolve show")
				return nil // Unresolved ids are reported by omission
			}

			status := &media.BackendStatus{
				ExternalID: id,
				MediaType:  media.TypeShow,
				Seasons:    seasonsOf(found),
			}
			if series, ok := library[found.TvdbID]; ok {
				status = seriesStatus(id, series)
			}

			mu.Lock()
			statuses[id] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Debug().
		Int("requested", len(tmdbIDs)).
		Int("resolved", len(statuses)).
		Msg("Resolved show batch status")

	return statuses, nil
}

// library returns every tracked series indexed by TVDB id
func (c *Client) library(ctx context.Context) (map[int64]*sonarr.Series, error) {
	if cached, ok := c.cache.Get(libraryCacheKey); ok {
		return cached.(map[int64]*sonarr.Series), nil
	}

	all, err := c.api.GetAllSeriesContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	byTVDB := make(map[int64]*sonarr.Series, len(all))
	for _, series := range all {
		if series != nil && series.TvdbID > 0 {
			byTVDB[series.TvdbID] = series
		}
	}

	c.cache.Set(libraryCacheKey, byTVDB, cache.DefaultExpiration)
	c.logger.Debug().Msgf("Retrieved %d series from Sonarr", len(all))
	return byTVDB, nil
}

func (c *Client) invalidateLibrary() {
	c.cache.Delete(libraryCacheKey)
}

// lookup maps a TMDB id to Sonarr's metadata for the show
func (c *Client) lookup(ctx context.Context, tmdbID int64) (*sonarr.Series, error) {
	term := "tmdb:" + strconv.FormatInt(tmdbID, 10)
	if cached, ok := c.cache.Get(term); ok {
		return cached.(*sonarr.Series), nil
	}

	results, err := c.api.GetSeriesLookupContext(ctx, term, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to look up show %d: %w", tmdbID, err)
	}

	for _, series := range results {
		if series != nil && series.TvdbID > 0 {
			c.cache.Set(term, series, cache.DefaultExpiration)
			return series, nil
		}
	}
	return nil, fmt.Errorf("%w: show %d", media.ErrNotFound, tmdbID)
}

// findSeries returns the tracked series with the given TVDB id, or nil
func (c *Client) findSeries(ctx context.Context, tvdbID int64) (*sonarr.Series, error) {
	all, err := c.api.GetSeriesContext(ctx, tvdbID)
	if err != nil {
		return nil, fmt.Errorf("failed to get series %d: %w", tvdbID, err)
	}

	for _, series := range all {
		if series != nil && series.TvdbID == tvdbID && series.ID > 0 {
			return series, nil
		}
	}
	return nil, nil
}

func seriesStatus(tmdbID int64, series *sonarr.Series) *media.BackendStatus {
	id := series.ID
	return &media.BackendStatus{
		ExternalID: tmdbID,
		MediaType:  media.TypeShow,
		InLibrary:  true,
		BackendID:  &id,
		Complete:   series.Statistics != nil && series.Statistics.PercentOfEpisodes >= 100,
		Seasons:    seasonsOf(series),
	}
}

// seasonsOf converts Sonarr seasons, skipping specials
func seasonsOf(series *sonarr.Series) []media.Season {
	seasons := make([]media.Season, 0, len(series.Seasons))
	for _, s := range series.Seasons {
		if s == nil || s.SeasonNumber <= 0 {
			continue
		}

		season := media.Season{
			Number:    s.SeasonNumber,
			Monitored: s.Monitored,
		}
		if s.Statistics != nil {
			season.EpisodeCount = s.Statistics.EpisodeCount
			season.EpisodeFileCount = s.Statistics.EpisodeFileCount
			season.Downloaded = s.Statistics.EpisodeCount > 0 &&
				s.Statistics.EpisodeFileCount >= s.Statistics.EpisodeCount
		}
		seasons = append(seasons, season)
	}

	slices.SortFunc(seasons, func(a, b media.Season) int {
		return a.Number - b.Number
	})
	return seasons
}

func dedupe(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
