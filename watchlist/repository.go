package watchlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/s0up4200/watcharr/media"
)

// DuplicatePolicy decides what Add does with an existing key when the caller
// did not ask for an update
type DuplicatePolicy string

const (
	// DuplicateReject fails with media.ErrDuplicate
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateUpsert overwrites notes and seasons
	DuplicateUpsert DuplicatePolicy = "upsert"
	// DuplicateKeep returns the existing entry unchanged
	DuplicateKeep DuplicatePolicy = "keep"
)

// ParseDuplicatePolicy converts a config value, defaulting to DuplicateReject
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateReject:
		return DuplicateReject, nil
	case DuplicateUpsert, DuplicateKeep:
		return DuplicatePolicy(s), nil
	}
	return "", fmt.Errorf("unknown duplicate policy: %s", s)
}

// AddRequest describes an entry to add
type AddRequest struct {
	ExternalID      int64
	MediaType       media.MediaType
	Notes           *string
	SelectedSeasons []int
	// Update overwrites an existing entry instead of applying the duplicate policy
	Update bool
}

func (r AddRequest) key() media.Key {
	return media.Key{ExternalID: r.ExternalID, MediaType: r.MediaType}
}

func (r AddRequest) validate() error {
	if r.ExternalID <= 0 {
		return fmt.Errorf("%w: %d", media.ErrInvalidExternalID, r.ExternalID)
	}
	if !r.MediaType.Valid() {
		return fmt.Errorf("%w: %q", media.ErrInvalidMediaType, r.MediaType)
	}
	if r.MediaType == media.TypeMovie && len(r.SelectedSeasons) > 0 {
		return fmt.Errorf("%w: seasons only apply to shows", media.ErrInvalidSeason)
	}
	for _, n := range r.SelectedSeasons {
		if n < 0 {
			return fmt.Errorf("%w: %d", media.ErrInvalidSeason, n)
		}
	}
	return nil
}

// BatchDeleteResult contains the results of a batch remove
type BatchDeleteResult struct {
	Requested int
	Deleted   int
	Missing   []uint
	Failed    map[uint]error
}

// Option configures a Repository
type Option func(*Repository)

// WithDuplicatePolicy sets the policy applied to re-adds without the update flag
func WithDuplicatePolicy(policy DuplicatePolicy) Option {
	return func(r *Repository) {
		r.policy = policy
	}
}

// Repository is the durable watchlist store
type Repository struct {
	db     *gorm.DB
	locks  *keyLocks
	policy DuplicatePolicy
	logger zerolog.Logger
}

// NewRepository creates a repository on an opened database
func NewRepository(db *gorm.DB, logger zerolog.Logger, opts ...Option) *Repository {
	r := &Repository{
		db:     db,
		locks:  newKeyLocks(),
		policy: DuplicateReject,
		logger: logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Add creates an entry or, when allowed, updates the existing one
func (r *Repository) Add(ctx context.Context, req AddRequest) (*media.Entry, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	key := req.key()
	unlock := r.locks.Lock(key)
	defer unlock()

	seasons := media.NormalizeSeasons(req.SelectedSeasons)

	rec, err := r.findRecord(ctx, key)
	if errors.Is(err, media.ErrNotFound) {
		rec = &entryRecord{
			ExternalID:      req.ExternalID,
			MediaType:       string(req.MediaType),
			Notes:           req.Notes,
			SelectedSeasons: seasons,
			LibraryState:    string(media.StateUnknown),
		}
		if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("%w: %s", media.ErrDuplicate, key)
			}
			return nil, fmt.Errorf("failed to add %s: %w", key, err)
		}

		r.logger.Debug().Str("key", key.String()).Uint("id", rec.ID).Msg("Added watchlist entry")
		return rec.toEntry(), nil
	}
	if err != nil {
		return nil, err
	}

	if !req.Update {
		switch r.policy {
		case DuplicateKeep:
			return rec.toEntry(), nil
		case DuplicateReject:
			return nil, fmt.Errorf("%w: %s", media.ErrDuplicate, key)
		}
	}

	rec.Notes = req.Notes
	rec.SelectedSeasons = seasons
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", key, err)
	}

	r.logger.Debug().Str("key", key.String()).Ints("seasons", seasons).Msg("Updated watchlist entry")
	return rec.toEntry(), nil
}

// Get returns the entry with the given surrogate id
func (r *Repository) Get(ctx context.Context, id uint) (*media.Entry, error) {
	rec, err := r.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.toEntry(), nil
}

// Find returns the entry with the given key
func (r *Repository) Find(ctx context.Context, key media.Key) (*media.Entry, error) {
	rec, err := r.findRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.toEntry(), nil
}

// List returns all entries in insertion order
func (r *Repository) List(ctx context.Context) ([]media.Entry, error) {
	var records []entryRecord
	if err := r.db.WithContext(ctx).Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}

	entries := make([]media.Entry, 0, len(records))
	for i := range records {
		entries = append(entries, *records[i].toEntry())
	}
	return entries, nil
}

// Remove deletes a single entry, failing with media.ErrNotFound if id is unknown
func (r *Repository) Remove(ctx context.Context, id uint) error {
	deleted, err := r.remove(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: watchlist entry %d", media.ErrNotFound, id)
	}
	return nil
}

// RemoveBatch deletes every id it can. Unknown ids are reported as missing
// and do not fail the call.
func (r *Repository) RemoveBatch(ctx context.Context, ids []uint) BatchDeleteResult {
	result := BatchDeleteResult{
		Requested: len(ids),
		Failed:    make(map[uint]error),
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		deleted, err := r.remove(ctx, id)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Uint("id", id).Msg("Failed to remove watchlist entry")
			result.Failed[id] = err
		case deleted:
			result.Deleted++
		default:
			result.Missing = append(result.Missing, id)
		}
	}

	r.logger.Info().
		Int("requested", result.Requested).
		Int("deleted", result.Deleted).
		Int("missing", len(result.Missing)).
		Msg("Batch remove complete")

	return result
}

// UpdateSeasons replaces the selected seasons of a show entry
func (r *Repository) UpdateSeasons(ctx context.Context, externalID int64, seasons []int) (*media.Entry, error) {
	key := media.Key{ExternalID: externalID, MediaType: media.TypeShow}
	normalized := media.NormalizeSeasons(seasons)

	return r.mutate(ctx, key, func(rec *entryRecord) {
		rec.SelectedSeasons = normalized
	})
}

// SetStatus records the latest backend status for an entry
func (r *Repository) SetStatus(ctx context.Context, key media.Key, status media.LibraryStatus) (*media.Entry, error) {
	return r.mutate(ctx, key, func(rec *entryRecord) {
		rec.applyStatus(status)
	})
}

// mutate applies fn to the stored entry while holding its lock
func (r *Repository) mutate(ctx context.Context, key media.Key, fn func(*entryRecord)) (*media.Entry, error) {
	unlock := r.locks.Lock(key)
	defer unlock()

	rec, err := r.findRecord(ctx, key)
	if err != nil {
		return nil, err
	}

	fn(rec)
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", key, err)
	}
	return rec.toEntry(), nil
}

func (r *Repository) remove(ctx context.Context, id uint) (bool, error) {
	rec, err := r.getRecord(ctx, id)
	if errors.Is(err, media.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	unlock := r.locks.Lock(rec.key())
	defer unlock()

	res := r.db.WithContext(ctx).Delete(&entryRecord{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove watchlist entry %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) getRecord(ctx context.Context, id uint) (*entryRecord, error) {
	var rec entryRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: watchlist entry %d", media.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist entry %d: %w", id, err)
	}
	return &rec, nil
}

func (r *Repository) findRecord(ctx context.Context, key media.Key) (*entryRecord, error) {
	var rec entryRecord
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND media_type = ?", key.ExternalID, string(key.MediaType)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: watchlist entry %s", media.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find watchlist entry %s: %w", key, err)
	}
	return &rec, nil
}
