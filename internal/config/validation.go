package config

import "fmt"

// ValidationError reports one field that fails config.Validate. Multiple
// failures are aggregated into a *MultiValidationError so a single Load
// call surfaces every problem at once instead of stopping at the first.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// MultiValidationError aggregates the ValidationErrors found by Validate.
type MultiValidationError struct {
	Errors []*ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("config: %d validation errors:", len(e.Errors))
	for _, ve := range e.Errors {
		msg += "\n  - " + ve.Error()
	}
	return msg
}

// Validate enforces the invariants spec.md states are ConfigError-worthy at
// the boundary: step, window_size and margin_percent must be positive, and
// cache.percentiles must be non-empty.
func (c *Config) Validate() error {
	var errs []*ValidationError

	if c.CorridorParams.Step <= 0 {
		errs = append(errs, &ValidationError{"corrdor_params.step", "must be > 0"})
	}
	if c.CorridorParams.WindowSize <= 0 {
		errs = append(errs, &ValidationError{"corrdor_params.window_size", "must be > 0"})
	}
	if c.CorridorParams.MarginPercent <= 0 {
		errs = append(errs, &ValidationError{"corrdor_params.margin_percent", "must be > 0"})
	}
	if c.CorridorParams.MaxHarmonics < 0 {
		errs = append(errs, &ValidationError{"corrdor_params.max_harmonics", "must be >= 0"})
	}
	if c.CorridorParams.MinDataPoints < 0 {
		errs = append(errs, &ValidationError{"corrdor_params.min_data_points", "must be >= 0"})
	}
	if c.CorridorParams.MinCorridorWidthFactor < 0 {
		errs = append(errs, &ValidationError{"corrdor_params.min_corridor_width_factor", "must be >= 0"})
	}
	if len(c.Cache.Percentiles) == 0 {
		errs = append(errs, &ValidationError{"cache.percentiles", "must be non-empty"})
	}
	for _, p := range c.Cache.Percentiles {
		if p < 0 || p > 100 {
			errs = append(errs, &ValidationError{"cache.percentiles", fmt.Sprintf("value %d out of [0,100]", p)})
			break
		}
	}
	if c.Cache.Database.Path == "" {
		errs = append(errs, &ValidationError{"cache.database.path", "must not be empty"})
	}
	if c.Cache.Database.MaxTTL <= 0 {
		errs = append(errs, &ValidationError{"cache.database.max_ttl", "must be > 0"})
	}
	if c.Cache.MaxRebuildCount < 0 {
		errs = append(errs, &ValidationError{"cache.max_rebuild_count", "must be >= 0"})
	}
	if c.Timeout.MaxMetrics < 0 {
		errs = append(errs, &ValidationError{"timeout.max_metrics", "must be >= 0"})
	}
	if c.Server.Address == "" {
		errs = append(errs, &ValidationError{"server.address", "must not be empty"})
	}
	if c.Datasource.BaseURL == "" {
		errs = append(errs, &ValidationError{"datasource.base_url", "must not be empty"})
	}

	if len(errs) == 0 {
		return nil
	}
	return &MultiValidationError{Errors: errs}
}
