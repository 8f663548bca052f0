package sonarr

import (
	"context"

	"golift.io/starr/sonarr"
)

// SonarrAPI defines the subset of the Sonarr API used by the show backend
type SonarrAPI interface {
	// Series operations
	GetAllSeriesContext(ctx context.Context) ([]*sonarr.Series, error)
	GetSeriesContext(ctx context.Context, tvdbID int64) ([]*sonarr.Series, error)
	GetSeriesLookupContext(ctx context.Context, term string, tvdbID int64) ([]*sonarr.Series, error)
	AddSeriesContext(ctx context.Context, series *sonarr.AddSeriesInput) (*sonarr.Series, error)
	UpdateSeriesContext(ctx context.Context, series *sonarr.AddSeriesInput, moveFiles bool) (*sonarr.Series, error)

	// Command operations
	SendCommandContext(ctx context.Context, cmd *sonarr.CommandRequest) (*sonarr.CommandResponse, error)

	// Add defaults
	GetRootFoldersContext(ctx context.Context) ([]*sonarr.RootFolder, error)
	GetQualityProfilesContext(ctx context.Context) ([]*sonarr.QualityProfile, error)
}
