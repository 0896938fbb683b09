package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateAnomalyStatsCountingScenario(t *testing.T) {
	samples := []Sample{
		{T: 0, V: 0}, {T: 10, V: 0}, {T: 20, V: 100}, {T: 30, V: 100}, {T: 40, V: 0},
	}
	upper := []Sample{{T: 0, V: 50}, {T: 40, V: 50}}
	lower := []Sample{{T: 0, V: -1000}, {T: 40, V: -1000}}

	report := CalculateAnomalyStats(samples, upper, lower, PercentileConfig{}, true)

	require.Equal(t, 2, report.Above.AnomalyCount)
	assert.Equal(t, []float64{10, 20}, report.Above.Durations)
	assert.Equal(t, []float64{100, 100}, report.Above.Sizes)
	assert.InDelta(t, 50.0, report.Above.TimeOutsidePercent, 1e-9)
}

func TestAnomalyPercentageBounds(t *testing.T) {
	samples := []Sample{
		{T: 0, V: 0}, {T: 10, V: 200}, {T: 20, V: -200}, {T: 30, V: 0},
	}
	upper := []Sample{{T: 0, V: 10}, {T: 30, V: 10}}
	lower := []Sample{{T: 0, V: -10}, {T: 30, V: -10}}

	report := CalculateAnomalyStats(samples, upper, lower, PercentileConfig{}, true)

	assert.GreaterOrEqual(t, report.Above.TimeOutsidePercent, 0.0)
	assert.LessOrEqual(t, report.Above.TimeOutsidePercent, 100.0)
	assert.GreaterOrEqual(t, report.Below.TimeOutsidePercent, 0.0)
	assert.LessOrEqual(t, report.Below.TimeOutsidePercent, 100.0)
	assert.LessOrEqual(t, report.Combined.TimeOutsidePercent, 200.0)
}

func TestPercentileSummaryLengthMatchesConfig(t *testing.T) {
	percentiles := PercentileConfig{Percentiles: []int{50, 90, 99}}
	samples := []Sample{
		{T: 0, V: 0}, {T: 10, V: 100}, {T: 20, V: 200}, {T: 30, V: 300}, {T: 40, V: 400}, {T: 50, V: 0},
	}
	upper := []Sample{{T: 0, V: 10}, {T: 50, V: 10}}
	lower := []Sample{{T: 0, V: -10}, {T: 50, V: -10}}

	report := CalculateAnomalyStats(samples, upper, lower, percentiles, false)

	assert.Len(t, report.Above.Durations, len(percentiles.Percentiles))
	assert.Len(t, report.Above.Sizes, len(percentiles.Percentiles))
}

func TestConcernScalarClampedToUnitRange(t *testing.T) {
	dp := DefaultPercentiles{Duration: 50, Size: 50, DurationMultiplier: 1, SizeMultiplier: 1}
	history := AnomalyStats{Durations: []float64{10, 20, 30}, Sizes: []float64{1, 2, 3}}

	small := AnomalyStats{Durations: []float64{1}, Sizes: []float64{1}}
	huge := AnomalyStats{Durations: []float64{1e9}, Sizes: []float64{1e9}}

	scoreSmall := ConcernScalar(history, small, dp)
	scoreHuge := ConcernScalar(history, huge, dp)

	assert.GreaterOrEqual(t, scoreSmall, 0.0)
	assert.LessOrEqual(t, scoreSmall, 1.0)
	assert.GreaterOrEqual(t, scoreHuge, 0.0)
	assert.LessOrEqual(t, scoreHuge, 1.0)
	assert.InDelta(t, 1.0, scoreHuge, 1e-9)
}

func TestCalculatePercentileEmptyReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, CalculatePercentile(nil, 50))
	assert.Equal(t, 0.0, CalculatePercentile([]float64{-1, -2}, 50))
}
