package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesNoSuffix(t *testing.T) {
	base, overrides := ParseOverrides("up")
	assert.Equal(t, "up", base)
	assert.Nil(t, overrides)
}

func TestParseOverridesParsesTypedValues(t *testing.T) {
	base, overrides := ParseOverrides("up#corrdor_params.step=60;corrdor_params.use_common_trend=true;scaleCorridor=false;label=a,b,c")

	require.Equal(t, "up", base)
	require.Len(t, overrides, 4)

	byKey := make(map[string]interface{}, len(overrides))
	for _, o := range overrides {
		byKey[o.Key] = o.Value
	}

	assert.Equal(t, int64(60), byKey["corrdor_params.step"])
	assert.Equal(t, true, byKey["corrdor_params.use_common_trend"])
	assert.Equal(t, false, byKey["scaleCorridor"])
	assert.Equal(t, []interface{}{"a", "b", "c"}, byKey["label"])
}

func TestParseOverridesEmptySuffix(t *testing.T) {
	base, overrides := ParseOverrides("up#")
	assert.Equal(t, "up", base)
	assert.Nil(t, overrides)
}
