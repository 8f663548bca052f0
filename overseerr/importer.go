package overseerr

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/watchlist"
)

// ImportResult summarizes one import run
type ImportResult struct {
	Fetched int
	Added   []media.Key
	// Skipped maps keys that were not added to the reason
	Skipped map[media.Key]string
}

// Importer copies open Overseerr requests onto the watchlist
type Importer struct {
	source RequestSource
	store  Store
	logger zerolog.Logger
}

// NewImporter creates an importer
func NewImporter(source RequestSource, store Store, logger zerolog.Logger) *Importer {
	return &Importer{
		source: source,
		store:  store,
		logger: logger.With().Str("component", "overseerr-import").Logger(),
	}
}

// Import fetches all requests and adds every open one to the watchlist.
// Entries already on the watchlist are left untouched.
func (i *Importer) Import(ctx context.Context) (*ImportResult, error) {
	requests, err := i.source.Requests(ctx)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Fetched: len(requests),
		Skipped: make(map[media.Key]string),
	}

	for _, req := range ToAddRequests(requests) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := media.Key{ExternalID: req.ExternalID, MediaType: req.MediaType}
		if err := i.add(ctx, req); err != nil {
			if !errors.Is(err, media.ErrDuplicate) {
				i.logger.Warn().Err(err).Stringer("key", key).Msg("Failed to import request")
			}
			result.Skipped[key] = media.Reason(err)
			continue
		}
		result.Added = append(result.Added, key)
	}

	i.logger.Info().
		Int("fetched", result.Fetched).
		Int("added", len(result.Added)).
		Int("skipped", len(result.Skipped)).
		Msg("Imported Overseerr requests")

	return result, nil
}

func (i *Importer) add(ctx context.Context, req watchlist.AddRequest) error {
	key := media.Key{ExternalID: req.ExternalID, MediaType: req.MediaType}

	_, err := i.store.Find(ctx, key)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", media.ErrDuplicate, key)
	case !errors.Is(err, media.ErrNotFound):
		return err
	}

	_, err = i.store.Add(ctx, req)
	return err
}

// ToAddRequests converts open requests to watchlist add requests, one per
// media item in first-seen order. Show requests for the same series are
// merged and their seasons combined.
func ToAddRequests(requests []MediaRequest) []watchlist.AddRequest {
	var out []watchlist.AddRequest
	index := make(map[media.Key]int)

	for _, r := range requests {
		if !r.Status.Open() || r.Media.TmdbID <= 0 {
			continue
		}

		var mt media.MediaType
		switch r.Type {
		case MediaTypeMovie:
			mt = media.TypeMovie
		case MediaTypeTV:
			mt = media.TypeShow
		default:
			continue
		}

		key := media.Key{ExternalID: r.Media.TmdbID, MediaType: mt}
		seasons := requestedSeasons(r)

		if pos, ok := index[key]; ok {
			existing := &out[pos]
			switch {
			case mt != media.TypeShow:
			case len(existing.SelectedSeasons) > 0 && len(seasons) > 0:
				existing.SelectedSeasons = media.NormalizeSeasons(append(existing.SelectedSeasons, seasons...))
			default:
				// an empty selection already means every season
				existing.SelectedSeasons = []int{}
			}
			continue
		}

		notes := fmt.Sprintf("requested by %s", r.RequestedBy.GetDisplayName())
		req := watchlist.AddRequest{
			ExternalID: key.ExternalID,
			MediaType:  mt,
			Notes:      &notes,
		}
		if mt == media.TypeShow {
			req.SelectedSeasons = seasons
		}

		index[key] = len(out)
		out = append(out, req)
	}

	return out
}

func requestedSeasons(r MediaRequest) []int {
	seasons := make([]int, 0, len(r.Seasons))
	for _, s := range r.Seasons {
		if s.SeasonNumber > 0 && s.Status.Open() {
			seasons = append(seasons, s.SeasonNumber)
		}
	}
	slices.Sort(seasons)
	return slices.Compact(seasons)
}
