package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".watcharr"))
		}

		v.AddConfigPath("/etc/watcharr/")
	}

	v.SetEnvPrefix("WATCHARR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("radarr.url", "http://localhost:7878")
	v.SetDefault("radarr.timeout", "30s")
	v.SetDefault("sonarr.url", "http://localhost:8989")
	v.SetDefault("sonarr.timeout", "30s")
	v.SetDefault("overseerr.timeout", "30s")
	v.SetDefault("overseerr.rate_limit", 5)

	v.SetDefault("database.path", "./data/watcharr.db")

	v.SetDefault("watchlist.duplicate_policy", "reject")

	v.SetDefault("reconcile.batch_size", 0)
	v.SetDefault("reconcile.cache_ttl", "30s")
	v.SetDefault("reconcile.schedule", "*/30 * * * *")

	v.SetDefault("fulfillment.workers", 4)
	v.SetDefault("backend.max_retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if err := validateArr("radarr", cfg.Radarr); err != nil {
		return err
	}
	if err := validateArr("sonarr", cfg.Sonarr); err != nil {
		return err
	}

	if cfg.Overseerr.Enabled() && cfg.Overseerr.APIKey == "" {
		return fmt.Errorf("overseerr.api_key is required when overseerr.url is set")
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	validPolicies := map[string]bool{
		"":       true, // uses default
		"reject": true,
		"upsert": true,
		"keep":   true,
	}
	if !validPolicies[cfg.Watchlist.DuplicatePolicy] {
		return fmt.Errorf("invalid watchlist.duplicate_policy: %s (must be 'reject', 'upsert' or 'keep')", cfg.Watchlist.DuplicatePolicy)
	}

	if cfg.Reconcile.BatchSize < 0 {
		return fmt.Errorf("reconcile.batch_size must not be negative")
	}
	if cfg.Fulfillment.Workers < 0 || cfg.Fulfillment.Workers > 16 {
		return fmt.Errorf("fulfillment.workers must be between 1 and 16")
	}
	if cfg.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries must not be negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

func validateArr(name string, cfg ArrConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("%s.url is required", name)
	}
	if cfg.APIKey == "" || cfg.APIKey == "your-api-key-here" {
		return fmt.Errorf("%s.api_key must be set to a valid API key", name)
	}
	if cfg.QualityProfileID < 0 {
		return fmt.Errorf("%s.quality_profile_id must not be negative", name)
	}
	return nil
}
