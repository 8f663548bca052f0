package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Radarr      ArrConfig         `mapstructure:"radarr"`
	Sonarr      ArrConfig         `mapstructure:"sonarr"`
	Overseerr   OverseerrConfig   `mapstructure:"overseerr"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Watchlist   WatchlistConfig   `mapstructure:"watchlist"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ArrConfig holds connection details for a Radarr or Sonarr instance
type ArrConfig struct {
	URL              string        `mapstructure:"url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	QualityProfileID int64         `mapstructure:"quality_profile_id"` // 0 uses the first profile
	RootFolder       string        `mapstructure:"root_folder"`        // empty uses the first root folder
}

// OverseerrConfig holds connection details for the optional Overseerr
// instance requests are imported from
type OverseerrConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
}

// Enabled reports whether an Overseerr instance is configured
func (c OverseerrConfig) Enabled() bool {
	return c.URL != ""
}

// DatabaseConfig points at the sqlite watchlist database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// WatchlistConfig contains watchlist behaviour settings
type WatchlistConfig struct {
	// DuplicatePolicy is one of "reject", "upsert" or "keep"
	DuplicatePolicy string `mapstructure:"duplicate_policy"`
}

// ReconcileConfig contains status reconciliation settings
type ReconcileConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Schedule  string        `mapstructure:"schedule"`
}

// FulfillmentConfig contains batch submission settings
type FulfillmentConfig struct {
	Workers int `mapstructure:"workers"`
}

// BackendConfig contains retry settings for backend reads
type BackendConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// MetricsConfig controls the prometheus endpoint of the watch daemon
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
