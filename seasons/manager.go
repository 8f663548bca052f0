// Package seasons manages which seasons of a show a watchlist entry asks for
package seasons

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/s0up4200/watcharr/media"
)

// SeasonLister returns the seasons the show backend knows
type SeasonLister interface {
	ListSeasons(ctx context.Context, externalID int64) ([]media.Season, error)
}

// Store persists season selections
type Store interface {
	Find(ctx context.Context, key media.Key) (*media.Entry, error)
	UpdateSeasons(ctx context.Context, externalID int64, seasons []int) (*media.Entry, error)
}

// Manager validates and applies season selections
type Manager struct {
	client SeasonLister
	store  Store
	logger zerolog.Logger
}

// NewManager creates a season selection manager
func NewManager(client SeasonLister, store Store, logger zerolog.Logger) *Manager {
	return &Manager{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Validate checks seasons against the backend and returns them deduplicated
// in ascending order. An empty selection means every season and is returned
// without asking the backend.
func (m *Manager) Validate(ctx context.Context, externalID int64, seasons []int) ([]int, error) {
	normalized := media.NormalizeSeasons(seasons)
	if len(normalized) == 0 {
		return normalized, nil
	}

	if normalized[0] < 0 {
		return nil, fmt.Errorf("%w: negative season %d", media.ErrInvalidSeason, normalized[0])
	}

	available, err := m.client.ListSeasons(ctx, externalID)
	if err != nil {
		return nil, err
	}

	known := make(map[int]struct{}, len(available))
	for _, s := range available {
		known[s.Number] = struct{}{}
	}

	var missing []int
	for _, n := range normalized {
		if _, ok := known[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: show %d has no season %v", media.ErrInvalidSeason, externalID, missing)
	}

	return normalized, nil
}

// Apply stores validated seasons on a show entry
func (m *Manager) Apply(ctx context.Context, entry media.Entry, validated []int) (*media.Entry, error) {
	if !entry.IsShow() {
		return nil, fmt.Errorf("%w: seasons only apply to shows, %s is a %s",
			media.ErrInvalidMediaType, entry.Key(), entry.MediaType)
	}

	updated, err := m.store.UpdateSeasons(ctx, entry.ExternalID, validated)
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Int64("tmdb_id", entry.ExternalID).
		Ints("seasons", updated.SelectedSeasons).
		Msg("Updated season selection")

	return updated, nil
}

// Select validates seasons for a watchlisted show and applies them
func (m *Manager) Select(ctx context.Context, externalID int64, seasons []int) (*media.Entry, error) {
	entry, err := m.store.Find(ctx, media.Key{ExternalID: externalID, MediaType: media.TypeShow})
	if err != nil {
		return nil, err
	}

	validated, err := m.Validate(ctx, externalID, seasons)
	if err != nil {
		return nil, err
	}

	return m.Apply(ctx, *entry, validated)
}
