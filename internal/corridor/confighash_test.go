package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseEffectiveConfig() map[string]interface{} {
	return map[string]interface{}{
		"corrdor_params": map[string]interface{}{
			"step":           30.0,
			"window_size":    12.0,
			"margin_percent": 0.1,
		},
		"cache": map[string]interface{}{
			"percentiles": []interface{}{50.0, 90.0, 99.0},
		},
	}
}

func TestConfigHashStableUnderKeyPermutation(t *testing.T) {
	a := map[string]interface{}{"x": 1.0, "y": 2.0}
	b := map[string]interface{}{"y": 2.0, "x": 1.0}

	assert.Equal(t, ConfigHash(a), ConfigHash(b))
}

func TestConfigHashIgnoresSavePrefixedKeys(t *testing.T) {
	cfg := baseEffectiveConfig()
	h1 := ConfigHash(cfg)

	cfg["save_foo"] = "bar"
	h2 := ConfigHash(cfg)

	assert.Equal(t, h1, h2)
}

func TestConfigHashChangesOnNumericMutation(t *testing.T) {
	cfg := baseEffectiveConfig()
	h1 := ConfigHash(cfg)

	mutated := baseEffectiveConfig()
	mutated["corrdor_params"].(map[string]interface{})["window_size"] = 13.0
	h2 := ConfigHash(mutated)

	assert.NotEqual(t, h1, h2)
}

func TestConfigHashStableUnderSubEpsilonFloatNoise(t *testing.T) {
	cfg := baseEffectiveConfig()
	h1 := ConfigHash(cfg)

	noisy := baseEffectiveConfig()
	noisy["corrdor_params"].(map[string]interface{})["margin_percent"] = 0.1 + 1e-7
	h2 := ConfigHash(noisy)

	assert.Equal(t, h1, h2)
}
