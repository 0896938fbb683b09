package api

import (
	"strings"

	"github.com/corridorproxy/corridor-proxy/internal/config"
	"github.com/corridorproxy/corridor-proxy/internal/corridor"
)

// applyOverride mutates cfg in place with one corridor.Override, matching
// the dotted-key names spec.md §6 lists for corrdor_params.*. Unknown keys
// are ignored — an override targeting a key this proxy doesn't recognize is
// not a request error, it's a no-op, the same way an unknown query-string
// parameter would be.
func applyOverride(cfg *config.Config, o corridor.Override) {
	switch strings.ToLower(o.Key) {
	case "corrdor_params.step":
		if v, ok := asInt64(o.Value); ok {
			cfg.CorridorParams.Step = v
		}
	case "corrdor_params.window_size":
		if v, ok := asInt64(o.Value); ok {
			cfg.CorridorParams.WindowSize = int(v)
		}
	case "corrdor_params.margin_percent":
		if v, ok := asFloat(o.Value); ok {
			cfg.CorridorParams.MarginPercent = v
		}
	case "corrdor_params.max_harmonics":
		if v, ok := asInt64(o.Value); ok {
			cfg.CorridorParams.MaxHarmonics = int(v)
		}
	case "corrdor_params.min_amplitude":
		if v, ok := asFloat(o.Value); ok {
			cfg.CorridorParams.MinAmplitude = v
		}
	case "corrdor_params.min_data_points":
		if v, ok := asInt64(o.Value); ok {
			cfg.CorridorParams.MinDataPoints = int(v)
		}
	case "corrdor_params.min_corridor_width_factor":
		if v, ok := asFloat(o.Value); ok {
			cfg.CorridorParams.MinCorridorWidthFactor = v
		}
	case "corrdor_params.use_common_trend":
		if v, ok := o.Value.(bool); ok {
			cfg.CorridorParams.UseCommonTrend = v
		}
	case "corrdor_params.historical_offset_days":
		if v, ok := asInt64(o.Value); ok {
			cfg.CorridorParams.HistoricalOffsetDays = int(v)
		}
	case "corrdor_params.historical_period_days":
		if v, ok := asInt64(o.Value); ok {
			cfg.CorridorParams.HistoricalPeriodDays = int(v)
		}
	case "scalecorridor":
		if v, ok := o.Value.(bool); ok {
			cfg.ScaleCorridor = v
		}
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// configAsMap flattens the fields corridor.ConfigHash needs into the
// map[string]interface{} shape its canonical serializer expects. Only the
// keys spec.md §3's config hash definition covers are included — the
// server/logging/datasource sections are ambient plumbing, not part of the
// "effective config" a corridor recompute is keyed on.
func configAsMap(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"corrdor_params": map[string]interface{}{
			"step":                      float64(cfg.CorridorParams.Step),
			"window_size":               float64(cfg.CorridorParams.WindowSize),
			"margin_percent":            cfg.CorridorParams.MarginPercent,
			"max_harmonics":             float64(cfg.CorridorParams.MaxHarmonics),
			"min_amplitude":             cfg.CorridorParams.MinAmplitude,
			"min_data_points":           float64(cfg.CorridorParams.MinDataPoints),
			"min_corridor_width_factor": cfg.CorridorParams.MinCorridorWidthFactor,
			"use_common_trend":          cfg.CorridorParams.UseCommonTrend,
			"historical_offset_days":    float64(cfg.CorridorParams.HistoricalOffsetDays),
			"historical_period_days":    float64(cfg.CorridorParams.HistoricalPeriodDays),
			"default_percentiles": map[string]interface{}{
				"duration":            cfg.CorridorParams.DefaultPercentiles.Duration,
				"size":                cfg.CorridorParams.DefaultPercentiles.Size,
				"duration_multiplier": cfg.CorridorParams.DefaultPercentiles.DurationMultiplier,
				"size_multiplier":     cfg.CorridorParams.DefaultPercentiles.SizeMultiplier,
			},
		},
		"cache": map[string]interface{}{
			"max_rebuild_count": float64(cfg.Cache.MaxRebuildCount),
			"percentiles":       intsToInterfaces(cfg.Cache.Percentiles),
			"database": map[string]interface{}{
				"path":    cfg.Cache.Database.Path,
				"max_ttl": float64(cfg.Cache.Database.MaxTTL),
			},
		},
		"scaleCorridor": cfg.ScaleCorridor,
		"timeout": map[string]interface{}{
			"max_metrics": float64(cfg.Timeout.MaxMetrics),
		},
	}
}

func intsToInterfaces(ints []int) []interface{} {
	out := make([]interface{}, len(ints))
	for i, v := range ints {
		out[i] = float64(v)
	}
	return out
}
