// Package backend routes status lookups and add requests to the movie or
// show backend by media type and normalizes their errors.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/metrics"
)

const (
	defaultMaxRetries    = 3
	defaultRetryInterval = 500 * time.Millisecond
	maxRetryInterval     = 5 * time.Second
)

// MovieBackend is implemented by the Radarr adapter
type MovieBackend interface {
	Status(ctx context.Context, tmdbID int64) (*media.BackendStatus, error)
	BatchStatus(ctx context.Context, tmdbIDs []int64) (map[int64]*media.BackendStatus, error)
	Add(ctx context.Context, tmdbID int64) (int64, error)
}

// ShowBackend is implemented by the Sonarr adapter
type ShowBackend interface {
	Status(ctx context.Context, tmdbID int64) (*media.BackendStatus, error)
	BatchStatus(ctx context.Context, tmdbIDs []int64) (map[int64]*media.BackendStatus, error)
	Add(ctx context.Context, tmdbID int64, seasons []int) (int64, error)
	Seasons(ctx context.Context, tmdbID int64) ([]media.Season, error)
}

// Client is the single entry point to both fulfillment backends. A backend
// left nil is treated as unavailable.
type Client struct {
	movies MovieBackend
	shows  ShowBackend
	logger zerolog.Logger

	metrics       *metrics.Recorder
	maxRetries    int
	retryInterval time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithMetrics records every backend call on r
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithMaxRetries sets how often an unavailable read is retried
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryInterval sets the initial backoff between retries
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// New creates a client routing movies to movies and shows to shows
func New(movies MovieBackend, shows ShowBackend, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		movies:        movies,
		shows:         shows,
		logger:        logger,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Status returns the library status of a single item
func (c *Client) Status(ctx context.Context, externalID int64, mt media.MediaType) (*media.BackendStatus, error) {
	if err := c.check(mt); err != nil {
		return nil, err
	}

	var status *media.BackendStatus
	err := c.read(ctx, mt, "status", func() error {
		var err error
		if mt == media.TypeMovie {
			status, err = c.movies.Status(ctx, externalID)
		} else {
			status, err = c.shows.Status(ctx, externalID)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("status of %s: %w", media.Key{ExternalID: externalID, MediaType: mt}, err)
	}
	return status, nil
}

// BatchStatus resolves many items of one media type. Ids the backend cannot
// resolve are absent from the result; the call fails only when the backend
// cannot be reached.
func (c *Client) BatchStatus(ctx context.Context, externalIDs []int64, mt media.MediaType) (map[int64]*media.BackendStatus, error) {
	if err := c.check(mt); err != nil {
		return nil, err
	}
	if len(externalIDs) == 0 {
		return map[int64]*media.BackendStatus{}, nil
	}

	var statuses map[int64]*media.BackendStatus
	err := c.read(ctx, mt, "batch_status", func() error {
		var err error
		if mt == media.TypeMovie {
			statuses, err = c.movies.BatchStatus(ctx, externalIDs)
		} else {
			statuses, err = c.shows.BatchStatus(ctx, externalIDs)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("batch status of %d %s items: %w", len(externalIDs), mt, err)
	}
	if statuses == nil {
		statuses = map[int64]*media.BackendStatus{}
	}
	return statuses, nil
}

// AddToLibrary requests an item and returns the backend's id for it. Seasons
// only apply to shows. Adds are never retried.
func (c *Client) AddToLibrary(ctx context.Context, externalID int64, mt media.MediaType, seasons []int) (int64, error) {
	if err := c.check(mt); err != nil {
		return 0, err
	}

	start := time.Now()
	var (
		backendID int64
		err       error
	)
	if mt == media.TypeMovie {
		backendID, err = c.movies.Add(ctx, externalID)
	} else {
		backendID, err = c.shows.Add(ctx, externalID, seasons)
	}
	err = classify(err)
	c.metrics.ObserveBackendCall(mt, "add", time.Since(start), err)

	if err != nil {
		return 0, fmt.Errorf("add %s: %w", media.Key{ExternalID: externalID, MediaType: mt}, err)
	}
	return backendID, nil
}

// ListSeasons returns the seasons the show backend knows for a show
func (c *Client) ListSeasons(ctx context.Context, externalID int64) ([]media.Season, error) {
	if err := c.check(media.TypeShow); err != nil {
		return nil, err
	}

	var seasons []media.Season
	err := c.read(ctx, media.TypeShow, "seasons", func() error {
		var err error
		seasons, err = c.shows.Seasons(ctx, externalID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("seasons of show %d: %w", externalID, err)
	}
	return seasons, nil
}

func (c *Client) check(mt media.MediaType) error {
	switch mt {
	case media.TypeMovie:
		if c.movies == nil {
			return fmt.Errorf("%w: radarr is not configured", media.ErrBackendUnavailable)
		}
	case media.TypeShow:
		if c.shows == nil {
			return fmt.Errorf("%w: sonarr is not configured", media.ErrBackendUnavailable)
		}
	default:
		return fmt.Errorf("%w: %q", media.ErrInvalidMediaType, mt)
	}
	return nil
}

// read runs an idempotent call, retrying with exponential backoff while the
// backend is unavailable
func (c *Client) read(ctx context.Context, mt media.MediaType, operation string, fn func() error) error {
	start := time.Now()
	attempt := 0

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.MaxInterval = maxRetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)

	err := backoff.RetryNotify(func() error {
		attempt++
		err := classify(fn())
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, next time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("operation", operation).
			Str("media_type", string(mt)).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("Backend unavailable, retrying")
	})

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}

	c.metrics.ObserveBackendCall(mt, operation, time.Since(start), err)
	return err
}
