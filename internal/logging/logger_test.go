package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level", File: filepath.Join(t.TempDir(), "x.log")})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(Config{
		Level:      "warn",
		File:       filepath.Join(t.TempDir(), "corridor.log"),
		MaxSizeMB:  10,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)

	adapter := CorridorAdapter{Base: logger}
	adapter.Warnf("dft_rebuild_count %d exceeds max %d for query=%s", 60, 50, "up(foo)")
	adapter.Errorf("cache store error: %v", assert.AnError)
}
