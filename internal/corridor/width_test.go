package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureWidthOrderingInvariant(t *testing.T) {
	upper := []Sample{{T: 0, V: 10}, {T: 1, V: 10.05}, {T: 2, V: 9}}
	lower := []Sample{{T: 0, V: 9.98}, {T: 1, V: 10}, {T: 2, V: 8.5}}

	outUpper, outLower, repaired := EnsureWidth(upper, lower, 10, 9, WidthParams{MinCorridorWidthFactor: 0.1})

	require.True(t, repaired > 0)
	for i := range outUpper {
		assert.GreaterOrEqual(t, outUpper[i].V, outLower[i].V)
	}
}

func TestEnsureWidthFlatCorridorCollapse(t *testing.T) {
	n := 5
	upper := make([]Sample, n)
	lower := make([]Sample, n)
	for i := 0; i < n; i++ {
		upper[i] = Sample{T: int64(i), V: 0}
		lower[i] = Sample{T: int64(i), V: 0}
	}

	outUpper, outLower, repaired := EnsureWidth(upper, lower, 0, 0, WidthParams{MinCorridorWidthFactor: 0.1})

	require.Equal(t, n, repaired)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0.05, outUpper[i].V, 1e-9)
		assert.InDelta(t, -0.05, outLower[i].V, 1e-9)
	}
}

func TestEnsureWidthPreservesHealthySamples(t *testing.T) {
	upper := []Sample{{T: 0, V: 100}, {T: 1, V: 100}}
	lower := []Sample{{T: 0, V: 0}, {T: 1, V: 0}}

	outUpper, outLower, repaired := EnsureWidth(upper, lower, 50, 50, WidthParams{MinCorridorWidthFactor: 0.1})

	assert.Equal(t, 0, repaired)
	assert.Equal(t, upper, outUpper)
	assert.Equal(t, lower, outLower)
}
