package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleINI = `
[corrdor_params]
step = 60
window_size = 24
margin_percent = 0.2
max_harmonics = 8
min_amplitude = 0.05
min_data_points = 50
min_corridor_width_factor = 0.15
use_common_trend = true
historical_offset_days = 14
historical_period_days = 7

[corrdor_params.default_percentiles]
duration = 600
size = 20
duration_multiplier = 1.5
size_multiplier = 1.5

[cache]
max_rebuild_count = 25
percentiles = 50,90,99

[cache.database]
path = test_cache.db
max_ttl = 86400

[timeout]
max_metrics = 10

scaleCorridor = true

[logging]
level = debug
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corridor.ini")
	require.NoError(t, os.WriteFile(path, []byte(sampleINI), 0o644))
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(writeSampleConfig(t)))

	cfg := m.Get()
	assert.Equal(t, int64(60), cfg.CorridorParams.Step)
	assert.Equal(t, 24, cfg.CorridorParams.WindowSize)
	assert.True(t, cfg.CorridorParams.UseCommonTrend)
	assert.Equal(t, []int{50, 90, 99}, cfg.Cache.Percentiles)
	assert.True(t, cfg.ScaleCorridor)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, ":9090", cfg.Server.Address)
}

func TestValidateRejectsNonPositiveStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CorridorParams.Step = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrdor_params.step")
}

func TestValidateRejectsEmptyPercentiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Percentiles = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.percentiles")
}

func TestValidateAggregatesMultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CorridorParams.Step = -1
	cfg.CorridorParams.WindowSize = 0
	cfg.Cache.Percentiles = nil

	err := cfg.Validate()
	require.Error(t, err)
	multi, ok := err.(*MultiValidationError)
	require.True(t, ok)
	assert.Len(t, multi.Errors, 3)
}

func TestCloneIsIndependentOfSource(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Cache.Percentiles[0] = 1

	assert.NotEqual(t, cfg.Cache.Percentiles[0], clone.Cache.Percentiles[0])
}

func TestReloadPicksUpFileChanges(t *testing.T) {
	path := writeSampleConfig(t)
	m := NewManager()
	require.NoError(t, m.Load(path))
	require.Equal(t, int64(60), m.Get().CorridorParams.Step)

	updated := sampleINI + "\n[corrdor_params]\nstep = 90\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, m.Reload())

	assert.Equal(t, int64(90), m.Get().CorridorParams.Step)
}
