// Package metrics exposes the corridor-proxy's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DFTRebuildsTotal counts every full recompute StatsCacheOrchestrator
	// performs for a given query, regardless of outcome.
	DFTRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_dft_rebuilds_total",
			Help: "Total number of DFT corridor recomputes performed",
		},
		[]string{"query"},
	)

	// CacheLookupsTotal is tagged hit/miss/placeholder so cache efficiency
	// and the sparse-series short-circuit rate are both visible.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_cache_lookups_total",
			Help: "Total number of PersistentCache lookups by result",
		},
		[]string{"result"}, // hit | miss | placeholder
	)

	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corridor_recompute_duration_seconds",
			Help:    "Wall-clock time from the start of a query_range request's group processing until a recomputed label-group's result is handled",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"query"},
	)

	// ConcernScore mirrors the live ConcernScalar the corridor package
	// computes per direction, so an alerting rule can fire directly off it.
	ConcernScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corridor_concern_score",
			Help: "Most recent integral concern scalar in [0,1] for a query/fingerprint/direction",
		},
		[]string{"query", "fingerprint", "direction"}, // direction: above | below
	)

	WidthRepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_width_repairs_total",
			Help: "Total number of samples whose corridor width was widened to the configured minimum",
		},
		[]string{"query"},
	)

	// GroupsSkippedTotal tracks timeout.max_metrics truncation per spec.md
	// §5 ("further groups are skipped with a warning").
	GroupsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_groups_skipped_total",
			Help: "Total number of label-groups skipped rather than processed for a query",
		},
		[]string{"reason"}, // reason: timeout
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_websocket_connections",
			Help: "Current number of active live-corridor-stream WebSocket connections",
		},
	)

	WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_websocket_messages_total",
			Help: "Total number of WebSocket messages sent on the live-corridor-stream",
		},
		[]string{"direction"}, // direction: inbound | outbound
	)
)
