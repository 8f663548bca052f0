package radarr

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	"golift.io/starr/radarr"

	"github.com/s0up4200/watcharr/media"
)

// Status returns the library status of a single movie. Movies Radarr cannot
// find at all fail with media.ErrNotFound.
func (c *Client) Status(ctx context.Context, tmdbID int64) (*media.BackendStatus, error) {
	movie, err := c.findMovie(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if movie != nil {
		return movieStatus(tmdbID, movie), nil
	}

	if _, err := c.lookup(ctx, tmdbID); err != nil {
		return nil, err
	}
	return &media.BackendStatus{ExternalID: tmdbID, MediaType: media.TypeMovie}, nil
}

// BatchStatus resolves many movies against a snapshot of the library.
// Movies missing from the snapshot are reported as not in the library.
func (c *Client) BatchStatus(ctx context.Context, tmdbIDs []int64) (map[int64]*media.BackendStatus, error) {
	library, err := c.library(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make(map[int64]*media.BackendStatus, len(tmdbIDs))
	for _, id := range tmdbIDs {
		if movie, ok := library[id]; ok {
			statuses[id] = movieStatus(id, movie)
			continue
		}
		statuses[id] = &media.BackendStatus{ExternalID: id, MediaType: media.TypeMovie}
	}

	c.logger.Debug().
		Int("requested", len(tmdbIDs)).
		Int("library_size", len(library)).
		Msg("Resolved movie batch status")

	return statuses, nil
}

// library returns every tracked movie indexed by TMDB id
func (c *Client) library(ctx context.Context) (map[int64]*radarr.Movie, error) {
	if cached, ok := c.cache.Get(libraryCacheKey); ok {
		return cached.(map[int64]*radarr.Movie), nil
	}

	movies, err := c.api.GetMovieContext(ctx, &radarr.GetMovie{})
	if err != nil {
		return nil, fmt.Errorf("failed to get movies: %w", err)
	}

	byTMDB := make(map[int64]*radarr.Movie, len(movies))
	for _, movie := range movies {
		if movie != nil && movie.TmdbID > 0 {
			byTMDB[movie.TmdbID] = movie
		}
	}

	c.cache.Set(libraryCacheKey, byTMDB, cache.DefaultExpiration)
	c.logger.Debug().Msgf("Retrieved %d movies from Radarr", len(movies))
	return byTMDB, nil
}

func (c *Client) invalidateLibrary() {
	c.cache.Delete(libraryCacheKey)
}

// findMovie returns the tracked movie with the given TMDB id, or nil
func (c *Client) findMovie(ctx context.Context, tmdbID int64) (*radarr.Movie, error) {
	movies, err := c.api.GetMovieContext(ctx, &radarr.GetMovie{TMDBID: tmdbID})
	if err != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", tmdbID, err)
	}

	for _, movie := range movies {
		if movie != nil && movie.TmdbID == tmdbID {
			return movie, nil
		}
	}
	return nil, nil
}

// lookup asks Radarr's metadata source for a movie it does not track yet
func (c *Client) lookup(ctx context.Context, tmdbID int64) (*radarr.Movie, error) {
	movie, err := c.api.LookupTMDBContext(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up movie %d: %w", tmdbID, err)
	}
	if movie == nil || movie.TmdbID == 0 || movie.Title == "" {
		return nil, fmt.Errorf("%w: movie %d", media.ErrNotFound, tmdbID)
	}
	return movie, nil
}

func movieStatus(tmdbID int64, movie *radarr.Movie) *media.BackendStatus {
	id := movie.ID
	return &media.BackendStatus{
		ExternalID: tmdbID,
		MediaType:  media.TypeMovie,
		InLibrary:  true,
		BackendID:  &id,
		Complete:   movie.HasFile,
	}
}
