package radarr

import (
	"context"

	"golift.io/starr/radarr"
)

// RadarrAPI defines the subset of the Radarr API used by the movie backend
type RadarrAPI interface {
	// Library
	GetMovieContext(ctx context.Context, params *radarr.GetMovie) ([]*radarr.Movie, error)
	LookupTMDBContext(ctx context.Context, tmdbID int64) (*radarr.Movie, error)
	AddMovieContext(ctx context.Context, movie *radarr.AddMovieInput) (*radarr.Movie, error)

	// Add defaults
	GetRootFoldersContext(ctx context.Context) ([]*radarr.RootFolder, error)
	GetQualityProfilesContext(ctx context.Context) ([]*radarr.QualityProfile, error)
}
