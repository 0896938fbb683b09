package corridor

import "sort"

// RawSample is one sample as returned by a DataSource.queryRange call,
// before it has been split by label set.
type RawSample struct {
	T      int64
	V      float64
	Labels LabelSet
}

// GroupedSeries is one label-set's worth of samples plus its resolved
// LabelSet (fingerprint already computed, __name__ stripped).
type GroupedSeries struct {
	Fingerprint string
	Labels      LabelSet
	Samples     []Sample
}

// GroupSamplesWithLabels is GroupSamples but also returns the resolved
// LabelSet per fingerprint, which callers need to build a CacheEntry.
func GroupSamplesWithLabels(raw []RawSample) []GroupedSeries {
	index := make(map[string]*GroupedSeries)
	order := make([]string, 0)

	for _, r := range raw {
		labels := make(LabelSet, len(r.Labels))
		for k, v := range r.Labels {
			if k == "__name__" {
				continue
			}
			labels[k] = v
		}
		fp := labels.Fingerprint()
		g, ok := index[fp]
		if !ok {
			g = &GroupedSeries{Fingerprint: fp, Labels: labels}
			index[fp] = g
			order = append(order, fp)
		}
		g.Samples = append(g.Samples, Sample{T: r.T, V: r.V})
	}

	out := make([]GroupedSeries, 0, len(order))
	for _, fp := range order {
		out = append(out, *index[fp])
	}
	return out
}

// Interpolate resamples samples onto a uniform grid {start, start+step, …,
// <=end}. Each grid point is linearly interpolated from the two bracketing
// samples; a target outside the data range returns the nearest-side value;
// an empty input returns 0 at every grid point. Panics are never used —
// out-of-range step/end is the caller's responsibility (see ValidateGrid).
func Interpolate(samples []Sample, start, end, step int64) []Sample {
	sorted := sortSamples(samples)

	n := int((end-start)/step) + 1
	if n < 0 {
		n = 0
	}
	out := make([]Sample, 0, n)

	for t := start; t <= end; t += step {
		out = append(out, Sample{T: t, V: interpolateAt(sorted, t)})
	}
	return out
}

func interpolateAt(sorted []Sample, t int64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if t <= sorted[0].T {
		return sorted[0].V
	}
	if t >= sorted[len(sorted)-1].T {
		return sorted[len(sorted)-1].V
	}

	// Binary search for the bracketing pair [lo, hi].
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].T >= t })
	if sorted[i].T == t {
		return sorted[i].V
	}
	lo, hi := sorted[i-1], sorted[i]
	if hi.T == lo.T {
		return lo.V
	}
	w := float64(t-lo.T) / float64(hi.T-lo.T)
	return lo.V + w*(hi.V-lo.V)
}

// ValidateGrid enforces spec.md §4.1's constraints on a resample request.
func ValidateGrid(start, end, step int64) error {
	if step < 1 {
		return NewConfigError("corrdor_params.step", "must be >= 1")
	}
	if end < start {
		return NewConfigError("range", "end must be >= start")
	}
	return nil
}
