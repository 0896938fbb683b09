package config

// DefaultConfig returns the configuration tree with every default
// spec.md names or implies applied, before the config file is layered on
// top by the manager.
func DefaultConfig() *Config {
	return &Config{
		CorridorParams: CorridorParams{
			Step:                   30,
			WindowSize:             12,
			MarginPercent:          0.1,
			MaxHarmonics:           5,
			MinAmplitude:           0.01,
			MinDataPoints:          20,
			MinCorridorWidthFactor: 0.1,
			UseCommonTrend:         false,
			HistoricalOffsetDays:   7,
			HistoricalPeriodDays:   7,
			DefaultPercentiles: DefaultPercentiles{
				Duration:           300,
				Size:               10,
				DurationMultiplier: 1.0,
				SizeMultiplier:     1.0,
			},
		},
		Cache: Cache{
			Database: CacheDatabase{
				Path:   "corridor_cache.db",
				MaxTTL: 30 * 24 * 3600,
			},
			MaxRebuildCount: 50,
			Percentiles:     []int{50, 90, 99},
		},
		Timeout: Timeout{
			MaxMetrics: 50,
		},
		ScaleCorridor: false,
		Logging: Logging{
			Level:      "info",
			File:       "corridor-proxy.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: Server{
			Address: ":9090",
		},
		Datasource: Datasource{
			BaseURL: "http://localhost:9091",
			Timeout: 30_000_000_000, // 30s, spelled out because time.Duration literals need the import
		},
	}
}

func setDefaults(v settable) {
	d := DefaultConfig()

	v.SetDefault("corrdor_params.step", d.CorridorParams.Step)
	v.SetDefault("corrdor_params.window_size", d.CorridorParams.WindowSize)
	v.SetDefault("corrdor_params.margin_percent", d.CorridorParams.MarginPercent)
	v.SetDefault("corrdor_params.max_harmonics", d.CorridorParams.MaxHarmonics)
	v.SetDefault("corrdor_params.min_amplitude", d.CorridorParams.MinAmplitude)
	v.SetDefault("corrdor_params.min_data_points", d.CorridorParams.MinDataPoints)
	v.SetDefault("corrdor_params.min_corridor_width_factor", d.CorridorParams.MinCorridorWidthFactor)
	v.SetDefault("corrdor_params.use_common_trend", d.CorridorParams.UseCommonTrend)
	v.SetDefault("corrdor_params.historical_offset_days", d.CorridorParams.HistoricalOffsetDays)
	v.SetDefault("corrdor_params.historical_period_days", d.CorridorParams.HistoricalPeriodDays)
	v.SetDefault("corrdor_params.default_percentiles.duration", d.CorridorParams.DefaultPercentiles.Duration)
	v.SetDefault("corrdor_params.default_percentiles.size", d.CorridorParams.DefaultPercentiles.Size)
	v.SetDefault("corrdor_params.default_percentiles.duration_multiplier", d.CorridorParams.DefaultPercentiles.DurationMultiplier)
	v.SetDefault("corrdor_params.default_percentiles.size_multiplier", d.CorridorParams.DefaultPercentiles.SizeMultiplier)

	v.SetDefault("cache.database.path", d.Cache.Database.Path)
	v.SetDefault("cache.database.max_ttl", d.Cache.Database.MaxTTL)
	v.SetDefault("cache.max_rebuild_count", d.Cache.MaxRebuildCount)
	v.SetDefault("cache.percentiles", d.Cache.Percentiles)

	v.SetDefault("timeout.max_metrics", d.Timeout.MaxMetrics)
	v.SetDefault("scaleCorridor", d.ScaleCorridor)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)

	v.SetDefault("server.address", d.Server.Address)

	v.SetDefault("datasource.base_url", d.Datasource.BaseURL)
	v.SetDefault("datasource.timeout", d.Datasource.Timeout)
}

// settable is the slice of *viper.Viper that setDefaults needs, kept as an
// interface so this file has no direct viper import.
type settable interface {
	SetDefault(key string, value interface{})
}
