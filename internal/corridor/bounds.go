package corridor

// BoundsParams configures CorridorBoundsBuilder.
type BoundsParams struct {
	WindowSize    int
	MarginPercent float64
}

// Validate enforces spec.md §4.2: both parameters must be present and
// positive.
func (p BoundsParams) Validate() error {
	if p.WindowSize <= 0 {
		return NewConfigError("corrdor_params.window_size", "must be positive")
	}
	if p.MarginPercent <= 0 {
		return NewConfigError("corrdor_params.margin_percent", "must be positive")
	}
	return nil
}

// BuildBounds derives raw upper/lower envelopes from an (already
// interpolated, uniform-grid) series by sliding a centered window of
// params.WindowSize, clipped at the edges. At each position:
//
//	avg    = mean(window)
//	margin = avg * marginPercent / 100
//	upper  = max(window) + margin
//	lower  = min(window) - margin
//
// The result has the same length as series.
func BuildBounds(series []Sample, params BoundsParams) (upper, lower []Sample, err error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	n := len(series)
	upper = make([]Sample, n)
	lower = make([]Sample, n)

	half := params.WindowSize / 2
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + half
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}

		sum, min, max := 0.0, series[lo].V, series[lo].V
		count := 0
		for j := lo; j <= hi; j++ {
			v := series[j].V
			sum += v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			count++
		}
		avg := 0.0
		if count > 0 {
			avg = sum / float64(count)
		}
		margin := avg * params.MarginPercent / 100

		upper[i] = Sample{T: series[i].T, V: max + margin}
		lower[i] = Sample{T: series[i].T, V: min - margin}
	}

	return upper, lower, nil
}
