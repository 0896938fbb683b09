// Package corridor implements the anomaly-corridor synthesis pipeline: a
// DFT-based baseline builder, corridor-width enforcement, and the anomaly
// statistics and integral "concern" metrics derived from comparing a live
// window of samples against the synthesized corridor.
package corridor

import (
	"encoding/json"
	"sort"
	"time"
)

// Sample is a single timestamped observation. Timestamps are epoch seconds.
type Sample struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// LabelSet is a metric's label map. It never contains "__name__" — that key
// identifies the metric itself and is stripped before a LabelSet is built.
type LabelSet map[string]string

// Fingerprint returns the canonical JSON encoding of the label set: keys
// sorted lexicographically, independent of map iteration order. Two
// LabelSets with the same key/value pairs always produce the same
// fingerprint string.
func (l LabelSet) Fingerprint() string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(l[k])
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return string(buf)
}

// TrendLine is the linear regression y = Slope*t + Intercept fitted over
// historical (timestamp, value) pairs.
type TrendLine struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Harmonic is one term of a restorable DFT series. K=0 is the DC term, in
// which case Amplitude is the absolute value of the detrended signal's mean
// and Phase is 0 (mean >= 0) or pi (mean < 0), so Amplitude*cos(Phase)
// restores the signed mean.
type Harmonic struct {
	K         int     `json:"k"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
}

// BoundaryCurve is a fully restorable side of a corridor: a set of selected
// harmonics plus the trend line that was removed before transforming.
type BoundaryCurve struct {
	Coeffs []Harmonic `json:"coeffs"`
	Trend  TrendLine  `json:"trend"`
}

// CorridorSpec is the pair of restorable curves that define a corridor.
type CorridorSpec struct {
	Upper BoundaryCurve `json:"upper"`
	Lower BoundaryCurve `json:"lower"`
}

// Direction is which side of the corridor an anomaly violates.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// AnomalyStats holds per-direction anomaly statistics. When built with
// raw=false, Durations/Sizes are fixed-length percentile summaries instead
// of raw ascending-sorted arrays.
type AnomalyStats struct {
	TimeOutsidePercent float64   `json:"time_outside_percent"`
	AnomalyCount       int       `json:"anomaly_count"`
	Durations          []float64 `json:"durations"`
	Sizes              []float64 `json:"sizes"`
	Direction          Direction `json:"direction,omitempty"`
}

// CombinedStats carries only the fields that make sense summed across both
// directions.
type CombinedStats struct {
	TimeOutsidePercent float64 `json:"time_outside_percent"`
	AnomalyCount       int     `json:"anomaly_count"`
}

// AnomalyReport is the full result of calculateAnomalyStats: per-direction
// stats plus the combined view.
type AnomalyReport struct {
	Above    AnomalyStats  `json:"above"`
	Below    AnomalyStats  `json:"below"`
	Combined CombinedStats `json:"combined"`
}

// CacheEntry is one persisted (query, fingerprint) row: §4.7 dft_cache plus
// the queries-table fields needed to make decisions without a second round
// trip.
type CacheEntry struct {
	Query            string       `json:"query"`
	Fingerprint      string       `json:"fingerprint"`
	Labels           LabelSet     `json:"labels"`
	DataStart        int64        `json:"data_start"`
	Step             int64        `json:"step"`
	TotalDuration    int64        `json:"total_duration"`
	DFTRebuildCount  int           `json:"dft_rebuild_count"`
	ConfigHash       string        `json:"config_hash"`
	HistoricalStats  AnomalyReport `json:"historical_anomaly_stats"`
	DFTUpper         BoundaryCurve `json:"dft_upper"`
	DFTLower         BoundaryCurve `json:"dft_lower"`
	CreatedAt        time.Time     `json:"created_at"`
	LastAccessed     time.Time     `json:"last_accessed"`
	IsPlaceholder    bool          `json:"is_placeholder"`
}

// Corridor returns the CacheEntry's stored boundaries as a CorridorSpec.
func (c *CacheEntry) Corridor() CorridorSpec {
	return CorridorSpec{Upper: c.DFTUpper, Lower: c.DFTLower}
}

// placeholderMarker marks c as the sparse-series short-circuit described in
// spec.md §3/§4.6: labels carries unused_metric="true".
func (c *CacheEntry) placeholderMarker() {
	if c.Labels == nil {
		c.Labels = LabelSet{}
	}
	c.Labels["unused_metric"] = "true"
	c.IsPlaceholder = true
}

// sortSamples returns a copy of samples sorted ascending by timestamp.
func sortSamples(samples []Sample) []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	sort.Slice(out, func(i, j int) bool { return out[i].T < out[j].T })
	return out
}
