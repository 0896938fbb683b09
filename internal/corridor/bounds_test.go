package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBoundsRejectsNonPositiveParams(t *testing.T) {
	_, _, err := BuildBounds(nil, BoundsParams{WindowSize: 0, MarginPercent: 1})
	assert.Error(t, err)

	_, _, err = BuildBounds(nil, BoundsParams{WindowSize: 1, MarginPercent: 0})
	assert.Error(t, err)
}

func TestBuildBoundsUpperAboveLower(t *testing.T) {
	series := []Sample{
		{T: 0, V: 10}, {T: 1, V: 12}, {T: 2, V: 8}, {T: 3, V: 15}, {T: 4, V: 9},
	}

	upper, lower, err := BuildBounds(series, BoundsParams{WindowSize: 3, MarginPercent: 10})
	require.NoError(t, err)
	require.Len(t, upper, len(series))
	require.Len(t, lower, len(series))

	for i := range series {
		assert.GreaterOrEqual(t, upper[i].V, lower[i].V)
	}
}
