// Package datasource abstracts the upstream Prometheus/Grafana-compatible
// query surface behind the two operations the corridor pipeline consumes.
package datasource

import (
	"context"

	"github.com/corridorproxy/corridor-proxy/internal/corridor"
)

// DataSource is the black-box upstream collaborator spec.md §1 scopes out
// of the core pipeline: a source of metric names and raw label-tagged
// sample ranges.
type DataSource interface {
	// ListMetrics returns every metric name the upstream currently exposes,
	// for the /api/v1/labels and /api/v1/label/__name__/values endpoints.
	ListMetrics(ctx context.Context) ([]string, error)

	// QueryRange returns every raw sample for metric in [start,end] at the
	// given step (seconds), labeled by the series they belong to.
	QueryRange(ctx context.Context, metric string, start, end, step int64) ([]corridor.RawSample, error)
}
