// Package config loads and validates the corridor-proxy's dotted-key INI
// configuration and exposes it as a typed Config plus a ConfigManager that
// supports hot-reload.
package config

import "time"

// DefaultPercentiles carries the corrdor_params.default_percentiles.* keys
// used to convert historical anomaly durations/sizes into a normalization
// baseline for the concern scalar.
type DefaultPercentiles struct {
	Duration           float64 `mapstructure:"duration"`
	Size               float64 `mapstructure:"size"`
	DurationMultiplier float64 `mapstructure:"duration_multiplier"`
	SizeMultiplier     float64 `mapstructure:"size_multiplier"`
}

// CorridorParams holds every corrdor_params.* key. The section name keeps
// spec.md's own misspelling — it is the wire contract other tooling reads
// this file with, not a typo to silently fix.
type CorridorParams struct {
	Step                   int64              `mapstructure:"step"`
	WindowSize             int                `mapstructure:"window_size"`
	MarginPercent          float64            `mapstructure:"margin_percent"`
	MaxHarmonics           int                `mapstructure:"max_harmonics"`
	MinAmplitude           float64            `mapstructure:"min_amplitude"`
	MinDataPoints          int                `mapstructure:"min_data_points"`
	MinCorridorWidthFactor float64            `mapstructure:"min_corridor_width_factor"`
	UseCommonTrend         bool               `mapstructure:"use_common_trend"`
	HistoricalOffsetDays   int                `mapstructure:"historical_offset_days"`
	HistoricalPeriodDays   int                `mapstructure:"historical_period_days"`
	DefaultPercentiles     DefaultPercentiles `mapstructure:"default_percentiles"`
}

// CacheDatabase holds the cache.database.* keys.
type CacheDatabase struct {
	Path   string `mapstructure:"path"`
	MaxTTL int64  `mapstructure:"max_ttl"`
}

// Cache holds the cache.* keys, including the nested database section.
type Cache struct {
	Database        CacheDatabase `mapstructure:"database"`
	MaxRebuildCount int           `mapstructure:"max_rebuild_count"`
	Percentiles     []int         `mapstructure:"percentiles"`
}

// Timeout holds the timeout.* keys.
type Timeout struct {
	MaxMetrics int `mapstructure:"max_metrics"`
}

// Logging holds the logging.* keys this repo's ambient stack adds beyond
// what spec.md §6 lists — the level a rotating zap logger runs at.
type Logging struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Server holds the listen address for cmd/server's HTTP layer.
type Server struct {
	Address string `mapstructure:"address"`
}

// Datasource holds the upstream Prometheus-compatible source this proxy
// queries for both the live window and the historical baseline.
type Datasource struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the fully resolved configuration tree, one field per section
// spec.md §6 and SPEC_FULL.md §1.1 name.
type Config struct {
	CorridorParams CorridorParams `mapstructure:"corrdor_params"`
	Cache          Cache          `mapstructure:"cache"`
	Timeout        Timeout        `mapstructure:"timeout"`
	ScaleCorridor  bool           `mapstructure:"scaleCorridor"`
	Logging        Logging        `mapstructure:"logging"`
	Server         Server         `mapstructure:"server"`
	Datasource     Datasource     `mapstructure:"datasource"`
}

// Clone returns a deep-enough copy of c for a per-query override to mutate
// without touching the shared, hot-reloadable configuration. Percentiles is
// the only slice field, so it alone needs an explicit copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Cache.Percentiles = append([]int(nil), c.Cache.Percentiles...)
	return &clone
}

// MaxTTLDuration converts cache.database.max_ttl (seconds) to a
// time.Duration for use with cachestore.ShouldRecreate.
func (c *Config) MaxTTLDuration() time.Duration {
	return time.Duration(c.Cache.Database.MaxTTL) * time.Second
}
