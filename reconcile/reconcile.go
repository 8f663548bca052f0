// Package reconcile refreshes the library status of watchlist entries
// against the movie and show backends.
package reconcile

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/metrics"
)

// DefaultBatchSize of zero sends every id of a partition in one request
const DefaultBatchSize = 0

// StatusClient looks up library status in batches
type StatusClient interface {
	BatchStatus(ctx context.Context, externalIDs []int64, mt media.MediaType) (map[int64]*media.BackendStatus, error)
}

// Store persists reconciled statuses
type Store interface {
	List(ctx context.Context) ([]media.Entry, error)
	SetStatus(ctx context.Context, key media.Key, status media.LibraryStatus) (*media.Entry, error)
}

// Result is the outcome of one reconciliation pass
type Result struct {
	RunID uuid.UUID
	// Entries holds the input entries, in input order, with refreshed status
	Entries []media.Entry
	// Statuses holds the backend answer, seasons included, for every resolved key
	Statuses map[media.Key]*media.BackendStatus
	// Unresolved lists the keys no backend answer was found for
	Unresolved []media.Key
}

// Resolved returns the number of distinct keys that were resolved
func (r *Result) Resolved() int {
	return len(r.Statuses)
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithBatchSize caps the number of ids per batch status request. Zero sends
// each partition in a single request.
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n >= 0 {
			r.batchSize = n
		}
	}
}

// WithMetrics records per entry outcomes on m
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// Reconciler resolves entries against their backends
type Reconciler struct {
	client    StatusClient
	store     Store
	logger    zerolog.Logger
	metrics   *metrics.Recorder
	batchSize int
	now       func() time.Time
}

// New creates a reconciler. store may be nil, in which case results are
// only returned.
func New(client StatusClient, store Store, logger zerolog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		client:    client,
		store:     store,
		logger:    logger,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ReconcileAll reconciles every entry in the store
func (r *Reconciler) ReconcileAll(ctx context.Context) (*Result, error) {
	if r.store == nil {
		return nil, errors.New("reconciler has no store")
	}

	entries, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, entries)
}

// Reconcile partitions entries by media type, looks them up in chunks and
// merges the answers back by key. Entries without an answer become unknown
// and are listed as unresolved. An error is returned only when ctx is
// cancelled, together with the partial result; entries that were never
// queried keep their stored status and are listed as unresolved.
func (r *Reconciler) Reconcile(ctx context.Context, entries []media.Entry) (*Result, error) {
	runID := uuid.New()
	logger := r.logger.With().Str("run_id", runID.String()).Logger()

	partitions := partition(entries)
	types := []media.MediaType{media.TypeMovie, media.TypeShow}
	resolved := make([]map[int64]*media.BackendStatus, len(types))
	queried := make([][]int64, len(types))

	var g errgroup.Group
	for i, mt := range types {
		ids := partitions[mt]
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			resolved[i], queried[i] = r.resolvePartition(ctx, logger, mt, ids)
			return nil
		})
	}
	_ = g.Wait()

	statuses := make(map[media.Key]*media.BackendStatus)
	asked := make(map[media.Key]bool)
	for i, mt := range types {
		for id, status := range resolved[i] {
			statuses[media.Key{ExternalID: id, MediaType: mt}] = status
		}
		for _, id := range queried[i] {
			asked[media.Key{ExternalID: id, MediaType: mt}] = true
		}
	}

	result := &Result{
		RunID:    runID,
		Entries:  make([]media.Entry, len(entries)),
		Statuses: statuses,
	}

	checkedAt := r.now().UTC()
	updates := make(map[media.Key]media.LibraryStatus)
	reported := make(map[media.Key]struct{})
	for i, entry := range entries {
		key := entry.Key()
		status, ok := statuses[key]
		switch {
		case ok:
			entry.Status = status.LibraryStatus(checkedAt)
		case asked[key]:
			entry.Status = media.LibraryStatus{State: media.StateUnknown}
		}
		result.Entries[i] = entry

		if _, seen := reported[key]; seen {
			continue
		}
		reported[key] = struct{}{}

		if asked[key] {
			updates[key] = entry.Status
		}
		if !ok {
			result.Unresolved = append(result.Unresolved, key)
		}
		r.metrics.ReconciledEntry(entry.MediaType, ok)
	}

	r.writeBack(ctx, logger, updates)

	logger.Info().
		Int("entries", len(entries)).
		Int("resolved", len(statuses)).
		Int("unresolved", len(result.Unresolved)).
		Msg("Reconciliation complete")

	return result, ctx.Err()
}

// resolvePartition issues sequential chunked lookups for one media type and
// keeps only answers whose key matches what was asked. It also returns the
// ids that were sent to the backend.
func (r *Reconciler) resolvePartition(ctx context.Context, logger zerolog.Logger, mt media.MediaType, ids []int64) (map[int64]*media.BackendStatus, []int64) {
	out := make(map[int64]*media.BackendStatus, len(ids))
	var queried []int64

	size := r.batchSize
	if size <= 0 {
		size = max(len(ids), 1)
	}

	for chunk := range slices.Chunk(ids, size) {
		if ctx.Err() != nil {
			logger.Debug().Str("media_type", string(mt)).Msg("Reconciliation cancelled, stopping lookups")
			break
		}

		queried = append(queried, chunk...)
		statuses, err := r.client.BatchStatus(ctx, chunk, mt)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("media_type", string(mt)).
				Int("ids", len(chunk)).
				Msg("Batch status lookup failed")
			continue
		}

		for _, id := range chunk {
			status, ok := statuses[id]
			if !ok || status == nil {
				continue
			}
			if status.ExternalID != id || status.MediaType != mt {
				logger.Warn().
					Int64("requested", id).
					Str("returned", status.Key().String()).
					Msg("Discarding status for a different item")
				continue
			}
			out[id] = status
		}
	}

	return out, queried
}

// writeBack stores the refreshed statuses. Lookups that already completed
// are persisted even when ctx has been cancelled.
func (r *Reconciler) writeBack(ctx context.Context, logger zerolog.Logger, updates map[media.Key]media.LibraryStatus) {
	if r.store == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	for key, status := range updates {
		if _, err := r.store.SetStatus(ctx, key, status); err != nil {
			if errors.Is(err, media.ErrNotFound) {
				logger.Debug().Str("key", key.String()).Msg("Entry removed during reconciliation")
				continue
			}
			logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to store status")
		}
	}
}

// partition groups distinct external ids by media type, keeping first-seen
// order. Entries with an unknown media type are never queried.
func partition(entries []media.Entry) map[media.MediaType][]int64 {
	out := make(map[media.MediaType][]int64)
	seen := make(map[media.Key]struct{}, len(entries))

	for _, entry := range entries {
		if !entry.MediaType.Valid() {
			continue
		}
		key := entry.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out[entry.MediaType] = append(out[entry.MediaType], entry.ExternalID)
	}

	return out
}
