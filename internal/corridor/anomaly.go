package corridor

import (
	"math"
	"sort"
)

// PercentileConfig is cache.percentiles from spec.md §6: the fixed list of
// percentiles a percentile-summarized AnomalyStats reports.
type PercentileConfig struct {
	Percentiles []int
}

// DefaultPercentiles is spec.md §4.5's "defaultPercentiles" used by the
// integral concern calculations (distinct from cache.percentiles, which
// controls the shape persisted to the cache).
type DefaultPercentiles struct {
	Duration         int
	Size             int
	DurationMultiplier float64
	SizeMultiplier     float64
}

// CalculateAnomalyStats walks samples sorted by time and compares each to
// the linearly-interpolated boundary at that time, per spec.md §4.5. raw
// controls whether Durations/Sizes are left as ascending-sorted raw arrays
// (raw=true) or replaced by a fixed-length percentile summary (raw=false,
// the shape persisted to the cache).
func CalculateAnomalyStats(samples []Sample, upper, lower []Sample, percentiles PercentileConfig, raw bool) AnomalyReport {
	above := directionStats(samples, upper, DirectionAbove)
	below := directionStats(samples, lower, DirectionBelow)

	report := AnomalyReport{
		Above: above,
		Below: below,
		Combined: CombinedStats{
			TimeOutsidePercent: above.TimeOutsidePercent + below.TimeOutsidePercent,
			AnomalyCount:       above.AnomalyCount + below.AnomalyCount,
		},
	}

	if !raw {
		report.Above = percentileSummarize(report.Above, percentiles)
		report.Below = percentileSummarize(report.Below, percentiles)
	}

	return report
}

// directionStats computes raw (unsummarized) AnomalyStats for one
// direction: "above" compares against boundary (upper), "below" against
// boundary (lower).
func directionStats(samples []Sample, boundary []Sample, dir Direction) AnomalyStats {
	sorted := sortSamples(samples)
	stats := AnomalyStats{Direction: dir}

	if len(sorted) == 0 {
		return stats
	}

	var timeOutside, lastDuration float64
	var anomalyStart int64
	inAnomaly := false

	for i, s := range sorted {
		b := boundaryAt(boundary, s.T)
		isAnomalous := (dir == DirectionAbove && s.V > b) || (dir == DirectionBelow && s.V < b)

		if isAnomalous {
			if !inAnomaly {
				if i == 0 {
					anomalyStart = s.T
				} else {
					anomalyStart = sorted[i-1].T
				}
				inAnomaly = true
			}
			duration := float64(s.T - anomalyStart)
			denom := math.Max(1, math.Abs(b))
			size := round2(math.Abs(s.V-b) / denom * 100)
			stats.Durations = append(stats.Durations, duration)
			stats.Sizes = append(stats.Sizes, size)
			stats.AnomalyCount++
			lastDuration = duration
		} else if inAnomaly {
			timeOutside += lastDuration
			inAnomaly = false
		}
	}

	if inAnomaly {
		timeOutside += lastDuration
	}

	span := float64(sorted[len(sorted)-1].T - sorted[0].T)
	if span > 0 {
		stats.TimeOutsidePercent = 100 * timeOutside / span
	}

	sort.Float64s(stats.Durations)
	sort.Float64s(stats.Sizes)

	return stats
}

func boundaryAt(boundary []Sample, t int64) float64 {
	return interpolateAt(sortSamples(boundary), t)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentileSummarize replaces Durations/Sizes with fixed-length percentile
// summaries: if the raw set has <= len(percentiles) values, pad with 0.00;
// otherwise replace with the interpolated percentile values.
func percentileSummarize(s AnomalyStats, cfg PercentileConfig) AnomalyStats {
	p := len(cfg.Percentiles)
	out := s
	out.Durations = summarizeToPercentiles(s.Durations, cfg.Percentiles, p)
	out.Sizes = summarizeToPercentiles(s.Sizes, cfg.Percentiles, p)
	return out
}

func summarizeToPercentiles(values []float64, percentiles []int, p int) []float64 {
	if len(values) <= p {
		out := make([]float64, p)
		copy(out, values)
		for i := len(values); i < p; i++ {
			out[i] = 0.00
		}
		return out
	}
	out := make([]float64, p)
	for i, pct := range percentiles {
		out[i] = CalculatePercentile(values, pct)
	}
	return out
}

// CalculatePercentile drops non-positive values, sorts, and linearly
// interpolates at rank=(p/100)*(n-1). Returns 0 on an empty set, per
// spec.md §4.5.
func CalculatePercentile(values []float64, p int) float64 {
	filtered := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return 0
	}
	sort.Float64s(filtered)

	rank := float64(p) / 100 * float64(len(filtered)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return round2(filtered[lo])
	}
	w := rank - float64(lo)
	return round2(filtered[lo]*(1-w) + filtered[hi]*w)
}

// ConcernScalar is spec.md §4.5's single-direction integral "concern"
// metric, a scalar clamped to [0,1].
func ConcernScalar(history AnomalyStats, current AnomalyStats, dp DefaultPercentiles) float64 {
	histDur := CalculatePercentile(history.Durations, dp.Duration)
	histSz := CalculatePercentile(history.Sizes, dp.Size)
	if histDur == 0 || histSz == 0 {
		return 0
	}
	histArea := histDur * histSz

	curDur := maxOf(current.Durations) * dp.DurationMultiplier
	curSz := maxOf(current.Sizes) * dp.SizeMultiplier
	if curDur == 0 || curSz == 0 {
		return 0
	}

	ratio := math.Exp(curDur * curSz / histArea)
	return math.Min(10, ratio) / 10
}

// ConcernSum is spec.md §4.5's "concern sum" variant: the current
// contribution sums dur_i*mult_d * sz_i*mult_s over every current anomaly,
// and the historical duration percentile is first capped by
// adjustPercentile before computing histArea.
func ConcernSum(history AnomalyStats, current AnomalyStats, dp DefaultPercentiles, windowSize float64) float64 {
	histDur := adjustPercentile(history.Durations, dp.Duration, windowSize)
	histSz := CalculatePercentile(history.Sizes, dp.Size)
	if histDur == 0 || histSz == 0 {
		return 0
	}
	histArea := histDur * histSz

	curSum := 0.0
	n := len(current.Durations)
	if len(current.Sizes) < n {
		n = len(current.Sizes)
	}
	for i := 0; i < n; i++ {
		curSum += (current.Durations[i] * dp.DurationMultiplier) * (current.Sizes[i] * dp.SizeMultiplier)
	}
	if curSum == 0 {
		return 0
	}

	ratio := math.Exp(curSum / histArea)
	return math.Min(10, ratio) / 10
}

// adjustPercentile caps each historical duration at min(histDur,
// windowSize/2) before taking the percentile, when windowSize is smaller
// than the uncapped historical duration percentile.
func adjustPercentile(durations []float64, p int, windowSize float64) float64 {
	uncapped := CalculatePercentile(durations, p)
	if windowSize <= 0 || windowSize >= uncapped {
		return uncapped
	}

	ceiling := windowSize / 2
	capped := make([]float64, len(durations))
	for i, d := range durations {
		if d > ceiling {
			capped[i] = ceiling
		} else {
			capped[i] = d
		}
	}
	return CalculatePercentile(capped, p)
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
