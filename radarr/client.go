package radarr

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golift.io/starr"
	"golift.io/starr/radarr"

	"github.com/s0up4200/watcharr/config"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 5 * time.Minute

	libraryCacheKey = "library"
)

// Client answers status and add requests for movies using Radarr
type Client struct {
	api    RadarrAPI
	logger zerolog.Logger

	cache    *cache.Cache
	cacheTTL time.Duration

	rootFolder       string
	qualityProfileID int64
}

// Option configures a Client
type Option func(*Client)

// WithCacheTTL sets how long the library snapshot used for batch lookups is kept
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithRootFolder sets the root folder new movies are added to
func WithRootFolder(path string) Option {
	return func(c *Client) {
		c.rootFolder = path
	}
}

// WithQualityProfile sets the quality profile new movies are added with
func WithQualityProfile(id int64) Option {
	return func(c *Client) {
		c.qualityProfileID = id
	}
}

// NewClient creates a Radarr client from configuration. No request is made
// until the first lookup.
func NewClient(cfg config.ArrConfig, logger zerolog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	api := radarr.New(starr.New(cfg.APIKey, cfg.URL, timeout))

	opts = append([]Option{
		WithRootFolder(cfg.RootFolder),
		WithQualityProfile(cfg.QualityProfileID),
	}, opts...)

	return NewClientWithAPI(api, logger, opts...)
}

// NewClientWithAPI creates a client on top of an existing API implementation
func NewClientWithAPI(api RadarrAPI, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		api:      api,
		logger:   logger.With().Str("backend", "radarr").Logger(),
		cacheTTL: defaultCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.cache = cache.New(c.cacheTTL, 2*c.cacheTTL)
	return c
}
