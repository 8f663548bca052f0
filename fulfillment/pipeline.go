// Package fulfillment submits add-to-library requests for watchlist entries
// in batch, recording the outcome of every entry independently.
package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/metrics"
)

// DefaultWorkers bounds concurrent add requests
const DefaultWorkers = 4

// LibraryClient adds items to their backend
type LibraryClient interface {
	AddToLibrary(ctx context.Context, externalID int64, mt media.MediaType, seasons []int) (int64, error)
}

// Store records the status of added entries
type Store interface {
	SetStatus(ctx context.Context, key media.Key, status media.LibraryStatus) (*media.Entry, error)
}

// Result partitions the submitted keys. Every distinct key appears in
// exactly one of Succeeded and Failed.
type Result struct {
	RunID      uuid.UUID
	Succeeded  []media.Key
	Failed     map[media.Key]string
	BackendIDs map[media.Key]int64
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithWorkers sets the number of concurrent add requests
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMetrics records submission outcomes on m
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline submits entries to their backends with a bounded worker pool
type Pipeline struct {
	client  LibraryClient
	store   Store
	logger  zerolog.Logger
	metrics *metrics.Recorder
	workers int
	now     func() time.Time
}

// New creates a fulfillment pipeline
func New(client LibraryClient, store Store, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:  client,
		store:   store,
		logger:  logger,
		workers: DefaultWorkers,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type outcome struct {
	backendID int64
	reason    string
	ok        bool
}

// Submit requests every entry from its backend, passing the selected seasons
// of shows along. A failed entry never affects its siblings. Once ctx is
// cancelled no further request is started; requests already started finish
// and are recorded, the rest fail as not submitted. The result is complete
// in every case and ctx.Err() is returned alongside it.
func (p *Pipeline) Submit(ctx context.Context, entries []media.Entry) (*Result, error) {
	runID := uuid.New()
	logger := p.logger.With().Str("run_id", runID.String()).Logger()

	unique := dedupe(entries)
	outcomes := make([]outcome, len(unique))

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, entry := range unique {
		if err := ctx.Err(); err != nil {
			outcomes[i] = outcome{reason: notSubmitted(err)}
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{reason: notSubmitted(err)}
				return nil
			}
			outcomes[i] = p.submit(context.WithoutCancel(ctx), logger, entry)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		RunID:      runID,
		Failed:     make(map[media.Key]string),
		BackendIDs: make(map[media.Key]int64),
	}
	for i, entry := range unique {
		key := entry.Key()
		if outcomes[i].ok {
			result.Succeeded = append(result.Succeeded, key)
			result.BackendIDs[key] = outcomes[i].backendID
			continue
		}
		result.Failed[key] = outcomes[i].reason
	}

	logger.Info().
		Int("submitted", len(unique)).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("Fulfillment complete")

	return result, ctx.Err()
}

// submit adds a single entry and writes its new status back
func (p *Pipeline) submit(ctx context.Context, logger zerolog.Logger, entry media.Entry) outcome {
	key := entry.Key()

	var seasons []int
	if entry.IsShow() {
		seasons = entry.SelectedSeasons
	}

	backendID, err := p.client.AddToLibrary(ctx, entry.ExternalID, entry.MediaType, seasons)
	p.metrics.Submitted(entry.MediaType, err)
	if err != nil {
		logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to add to library")
		return outcome{reason: media.Reason(err)}
	}

	if p.store != nil {
		checkedAt := p.now().UTC()
		status := media.LibraryStatus{
			State:     media.StateInLibrary,
			BackendID: &backendID,
			CheckedAt: &checkedAt,
		}
		// The backend accepted the item, so it counts as succeeded either way
		if _, err := p.store.SetStatus(ctx, key, status); err != nil {
			logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to store status after add")
		}
	}

	logger.Debug().Str("key", key.String()).Int64("backend_id", backendID).Msg("Added to library")
	return outcome{backendID: backendID, ok: true}
}

func notSubmitted(err error) string {
	return "not submitted: " + err.Error()
}

// dedupe keeps the first entry of every key
func dedupe(entries []media.Entry) []media.Entry {
	seen := make(map[media.Key]struct{}, len(entries))
	out := make([]media.Entry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.Key()]; ok {
			continue
		}
		seen[entry.Key()] = struct{}{}
		out = append(out, entry)
	}
	return out
}
