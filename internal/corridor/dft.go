package corridor

import "math"

// DFTParams configures harmonic selection.
type DFTParams struct {
	MaxHarmonics    int
	MinAmplitude    float64
	UseCommonTrend  bool
}

// Detrend fits the ordinary least squares line y = slope*t + intercept over
// (t_i, y_i). If the denominator is too small to be numerically meaningful
// (|denom| < 1e-10), slope collapses to 0 and intercept to mean(y) — a flat
// line through the data's mean, per spec.md §4.3.
func Detrend(samples []Sample) TrendLine {
	n := float64(len(samples))
	if n == 0 {
		return TrendLine{}
	}

	var sumT, sumY float64
	for _, s := range samples {
		sumT += float64(s.T)
		sumY += s.V
	}
	meanT := sumT / n
	meanY := sumY / n

	var sumTY, sumTT float64
	for _, s := range samples {
		sumTY += float64(s.T) * s.V
		sumTT += float64(s.T) * float64(s.T)
	}

	denom := sumTT - n*meanT*meanT
	if math.Abs(denom) < 1e-10 {
		return TrendLine{Slope: 0, Intercept: meanY}
	}

	slope := (sumTY - n*meanT*meanY) / denom
	intercept := meanY - slope*meanT
	return TrendLine{Slope: slope, Intercept: intercept}
}

// CommonTrend applies the use_common_trend redesign: both boundary trends
// collapse to their arithmetic-mean slope, and each intercept is rebased so
// that the line still passes through that boundary's own (meanT, meanY) —
// i.e. mean(series) is preserved even though slope is shared.
func CommonTrend(upperSamples, lowerSamples []Sample, upper, lower TrendLine) (TrendLine, TrendLine) {
	commonSlope := (upper.Slope + lower.Slope) / 2

	rebase := func(samples []Sample, slope float64) TrendLine {
		n := float64(len(samples))
		if n == 0 {
			return TrendLine{Slope: slope}
		}
		var sumT, sumY float64
		for _, s := range samples {
			sumT += float64(s.T)
			sumY += s.V
		}
		meanT, meanY := sumT/n, sumY/n
		return TrendLine{Slope: slope, Intercept: meanY - slope*meanT}
	}

	return rebase(upperSamples, commonSlope), rebase(lowerSamples, commonSlope)
}

// Detrended subtracts a TrendLine from a series, returning the residuals in
// the same order (and same timestamps).
func Detrended(samples []Sample, trend TrendLine) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.V - (trend.Slope*float64(s.T) + trend.Intercept)
	}
	return out
}

// Transform computes the full real DFT of a detrended signal over bins
// k = 0..floor(N/2), per spec.md §4.3.
func Transform(x []float64) []Harmonic {
	n := len(x)
	if n == 0 {
		return nil
	}

	maxK := n / 2
	harmonics := make([]Harmonic, 0, maxK+1)

	for k := 0; k <= maxK; k++ {
		var re, im float64
		for t := 0; t < n; t++ {
			angle := 2 * math.Pi * float64(k) * float64(t) / float64(n)
			re += x[t] * math.Cos(angle)
			im -= x[t] * math.Sin(angle)
		}

		denom := float64(n)
		if k != 0 {
			denom = float64(n) / 2
		}
		amp := math.Sqrt(re*re+im*im) / denom

		phase := 0.0
		if re != 0 || im != 0 {
			phase = math.Atan2(im, re)
		}

		harmonics = append(harmonics, Harmonic{K: k, Amplitude: amp, Phase: phase})
	}

	return harmonics
}

// contribution approximates integral_0^T |amp*cos(2*pi*k*t/T + phase)| dt
// with a midpoint Riemann sum over the grid, for k>=1. For k=0 (the DC
// term) the contribution is simply amp*T.
func contribution(h Harmonic, totalDuration float64, gridPoints int) float64 {
	if h.K == 0 {
		return h.Amplitude * totalDuration
	}
	if gridPoints <= 0 {
		gridPoints = 1
	}
	dt := totalDuration / float64(gridPoints)
	sum := 0.0
	for i := 0; i < gridPoints; i++ {
		t := (float64(i) + 0.5) * dt
		sum += math.Abs(h.Amplitude * math.Cos(2*math.Pi*float64(h.K)*t/totalDuration+h.Phase))
	}
	return sum * dt
}

// SelectHarmonics applies spec.md §4.3's contribution-based selection:
// drop harmonics whose contribution is below min_amplitude*T*2/pi, keep
// the DC term plus the top (maxHarmonics-1) survivors by contribution,
// then post-filter anything with amplitude below 1e-12.
func SelectHarmonics(harmonics []Harmonic, params DFTParams, totalDuration float64, gridPoints int) []Harmonic {
	if totalDuration <= 0 || len(harmonics) == 0 {
		return nil
	}

	threshold := params.MinAmplitude * totalDuration * 2 / math.Pi

	type scored struct {
		h    Harmonic
		contrib float64
	}
	var survivors []scored
	var dc *Harmonic

	for i := range harmonics {
		h := harmonics[i]
		c := contribution(h, totalDuration, gridPoints)
		if c < threshold {
			continue
		}
		if h.K == 0 {
			hc := h
			dc = &hc
			continue
		}
		survivors = append(survivors, scored{h: h, contrib: c})
	}

	// Sort survivors by contribution descending, stable on K ascending for ties.
	for i := 1; i < len(survivors); i++ {
		for j := i; j > 0 && (survivors[j].contrib > survivors[j-1].contrib ||
			(survivors[j].contrib == survivors[j-1].contrib && survivors[j].h.K < survivors[j-1].h.K)); j-- {
			survivors[j], survivors[j-1] = survivors[j-1], survivors[j]
		}
	}

	keep := params.MaxHarmonics - 1
	if keep < 0 {
		keep = 0
	}
	if keep > len(survivors) {
		keep = len(survivors)
	}

	selected := make([]Harmonic, 0, keep+1)
	if dc != nil {
		selected = append(selected, *dc)
	}
	for i := 0; i < keep; i++ {
		selected = append(selected, survivors[i].h)
	}

	// Post-filter: drop near-zero amplitude harmonics.
	filtered := selected[:0]
	for _, h := range selected {
		if h.Amplitude >= 1e-12 {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

// Restore reconstructs a series over [start,end] at step s from a
// BoundaryCurve, using the dimensionless phase argument theta = (t -
// dataStart) / totalDuration so harmonics stay continuous across the
// boundary of the historical window when projected into a live window.
func Restore(curve BoundaryCurve, dataStart, totalDuration, start, end, step int64, withTrend bool) []Sample {
	if step < 1 {
		step = 1
	}
	n := int((end-start)/step) + 1
	if n < 0 {
		n = 0
	}
	out := make([]Sample, 0, n)

	td := float64(totalDuration)
	for t := start; t <= end; t += step {
		theta := 0.0
		if td != 0 {
			theta = float64(t-dataStart) / td
		}

		y := 0.0
		for _, h := range curve.Coeffs {
			y += h.Amplitude * math.Cos(2*math.Pi*float64(h.K)*theta+h.Phase)
		}
		if withTrend {
			y += curve.Trend.Slope*float64(t) + curve.Trend.Intercept
		}
		out = append(out, Sample{T: t, V: y})
	}
	return out
}

// BuildBoundaryCurve runs the full detrend→transform→select pipeline for
// one boundary series (upper or lower), dropping sub-1e-12-amplitude
// harmonics as spec.md §4.6 step 4 requires before they ever reach the
// cache.
func BuildBoundaryCurve(samples []Sample, params DFTParams) BoundaryCurve {
	trend := Detrend(samples)
	residual := Detrended(samples, trend)
	raw := Transform(residual)

	totalDuration := 0.0
	if len(samples) > 1 {
		totalDuration = float64(samples[len(samples)-1].T - samples[0].T)
	}

	// SelectHarmonics already enforces the sub-1e-12-amplitude floor as its
	// final post-filter step (spec.md §4.3), which is the same floor
	// §4.6 step 4 asks for again before a curve is persisted.
	selected := SelectHarmonics(raw, params, totalDuration, len(samples))

	return BoundaryCurve{Coeffs: selected, Trend: trend}
}
