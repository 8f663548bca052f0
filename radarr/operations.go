package radarr

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	"golift.io/starr/radarr"

	"github.com/s0up4200/watcharr/media"
)

const (
	rootFolderCacheKey     = "root_folder"
	qualityProfileCacheKey = "quality_profile"
)

// Add requests a movie, returning its Radarr id. Movies already in the
// library are rejected.
func (c *Client) Add(ctx context.Context, tmdbID int64) (int64, error) {
	existing, err := c.findMovie(ctx, tmdbID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, media.NewRejectedError("movie %d is already in the library", tmdbID)
	}

	movie, err := c.lookup(ctx, tmdbID)
	if err != nil {
		return 0, err
	}

	rootFolder, err := c.resolveRootFolder(ctx)
	if err != nil {
		return 0, err
	}
	profileID, err := c.resolveQualityProfile(ctx)
	if err != nil {
		return 0, err
	}

	added, err := c.api.AddMovieContext(ctx, &radarr.AddMovieInput{
		Title:            movie.Title,
		TitleSlug:        movie.TitleSlug,
		TmdbID:           tmdbID,
		Year:             movie.Year,
		QualityProfileID: profileID,
		RootFolderPath:   rootFolder,
		Monitored:        true,
		AddOptions:       &radarr.AddMovieOptions{SearchForMovie: true},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add movie %d: %w", tmdbID, err)
	}
	if added == nil {
		return 0, media.NewRejectedError("radarr returned no movie for %d", tmdbID)
	}

	c.invalidateLibrary()
	c.logger.Info().
		Int64("tmdb_id", tmdbID).
		Int64("movie_id", added.ID).
		Str("title", movie.Title).
		Msg("Successfully added movie")

	return added.ID, nil
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
	return "", media.NewRejectedError("radarr has no root folder configured")
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
	return 0, media.NewRejectedError("radarr has no quality profile configured")
}
