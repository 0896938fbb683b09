// Package api exposes the Prometheus-shaped HTTP surface spec.md §1 treats
// as an external boundary: /api/v1/labels, /api/v1/label/__name__/values,
// and /api/v1/query_range.
package api

import "github.com/corridorproxy/corridor-proxy/internal/corridor"

// MatrixResponse is the Prometheus query_range envelope Grafana expects.
type MatrixResponse struct {
	Status string     `json:"status"`
	Data   MatrixData `json:"data"`
}

type MatrixData struct {
	ResultType string        `json:"resultType"`
	Result     []MatrixEntry `json:"result"`
}

// MatrixEntry is one series: its label set plus the value grid and every
// corridor-derived field a panel plots alongside it. Values follow
// Prometheus's own [timestamp, "stringValue"] pair convention; the corridor
// fields are this service's own addition, not part of the stock matrix
// shape, and are ignored by anything that only understands plain
// Prometheus matrices.
type MatrixEntry struct {
	Metric          map[string]string     `json:"metric"`
	Values          [][2]interface{}      `json:"values"`
	CorridorUpper   [][2]interface{}      `json:"corridor_upper,omitempty"`
	CorridorLower   [][2]interface{}      `json:"corridor_lower,omitempty"`
	CurrentStats    corridor.AnomalyReport `json:"current_stats"`
	HistoricalStats corridor.AnomalyReport `json:"historical_stats"`
	DFTRebuildCount int                    `json:"dft_rebuild_count"`
	ConcernAbove    float64                `json:"concern_above"`
	ConcernBelow    float64                `json:"concern_below"`
}

// FormatGroupResult converts one corridor.GroupResult into the matrix
// entry shape the HTTP handler serializes.
func FormatGroupResult(r corridor.GroupResult) MatrixEntry {
	return MatrixEntry{
		Metric:          r.Labels,
		Values:          toPairs(r.Response.Samples),
		CorridorUpper:   toPairs(r.Response.DFTUpper),
		CorridorLower:   toPairs(r.Response.DFTLower),
		CurrentStats:    r.Response.CurrentStats,
		HistoricalStats: r.Response.HistoricalStats,
		DFTRebuildCount: r.Response.DFTRebuildCount,
		ConcernAbove:    r.Response.ConcernAbove,
		ConcernBelow:    r.Response.ConcernBelow,
	}
}

func toPairs(samples []corridor.Sample) [][2]interface{} {
	out := make([][2]interface{}, 0, len(samples))
	for _, s := range samples {
		out = append(out, [2]interface{}{s.T, formatValue(s.V)})
	}
	return out
}

func formatValue(v float64) string {
	return prometheusFloat(v)
}
