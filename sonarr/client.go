package sonarr

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golift.io/starr"
	"golift.io/starr/sonarr"

	"github.com/s0up4200/watcharr/config"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 5 * time.Minute

	// lookupConcurrency bounds parallel TMDB to TVDB lookups
	lookupConcurrency = 5

	libraryCacheKey = "library"
)

// Client answers status, season and add requests for shows using Sonarr.
// Shows are identified by TMDB id and mapped to Sonarr's TVDB ids through
// the series lookup endpoint.
type Client struct {
	api    SonarrAPI
	logger zerolog.Logger

	cache    *cache.Cache
	cacheTTL time.Duration

	rootFolder       string
	qualityProfileID int64
}

// Option configures a Client
type Option func(*Client)

// WithCacheTTL sets how long the library snapshot and id mappings are kept
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithRootFolder sets the root folder new shows are added to
func WithRootFolder(path string) Option {
	return func(c *Client) {
		c.rootFolder = path
	}
}

// WithQualityProfile sets the quality profile new shows are added with
func WithQualityProfile(id int64) Option {
	return func(c *Client) {
		c.qualityProfileID = id
	}
}

// NewClient creates a Sonarr client from configuration
func NewClient(cfg config.ArrConfig, logger zerolog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	api := sonarr.New(starr.New(cfg.APIKey, cfg.URL, timeout))

	opts = append([]Option{
		WithRootFolder(cfg.RootFolder),
		WithQualityProfile(cfg.QualityProfileID),
	}, opts...)

	return NewClientWithAPI(api, logger, opts...)
}

// NewClientWithAPI creates a client on top of an existing API implementation
func NewClientWithAPI(api SonarrAPI, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		api:      api,
		logger:   logger.With().Str("backend", "sonarr").Logger(),
		cacheTTL: defaultCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.cache = cache.New(c.cacheTTL, 2*c.cacheTTL)
	return c
}
