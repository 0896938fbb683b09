package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/corridorproxy/corridor-proxy/internal/cachestore"
	"github.com/corridorproxy/corridor-proxy/internal/corridor"
	"github.com/corridorproxy/corridor-proxy/internal/logging"
	"github.com/corridorproxy/corridor-proxy/internal/metrics"
)

var (
	errMissingQuery = errors.New("missing required query parameter")
	errBadRange     = errors.New("start, end and step must be valid integers")
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

type namesResponse struct {
	Status string   `json:"status"`
	Data   []string `json:"data"`
}

// handleLabels implements /api/v1/labels: it proxies straight to
// DataSource.ListMetrics, treating every metric name as a Prometheus label
// value on `__name__` (spec.md scopes real label discovery out of the core).
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ds.ListMetrics(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, namesResponse{Status: "success", Data: []string{"__name__"}})
}

// handleLabelValues implements /api/v1/label/__name__/values: the metric
// names DataSource.ListMetrics reports.
func (s *Server) handleLabelValues(w http.ResponseWriter, r *http.Request) {
	names, err := s.ds.ListMetrics(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, namesResponse{Status: "success", Data: names})
}

// handleQueryRange implements /api/v1/query_range: the only handler that
// touches the corridor pipeline. It fetches the live window and the
// historical baseline from DataSource, groups both by label fingerprint,
// runs StatsCacheOrchestrator per group (bounded by timeout.max_metrics),
// and formats the result as a Prometheus matrix.
func (s *Server) handleQueryRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawQuery := q.Get("query")
	if rawQuery == "" {
		s.writeError(w, http.StatusBadRequest, errMissingQuery)
		return
	}

	start, err1 := parseUnix(q.Get("start"))
	end, err2 := parseUnix(q.Get("end"))
	step, err3 := parseInt(q.Get("step"))
	if err1 != nil || err2 != nil || err3 != nil {
		s.writeError(w, http.StatusBadRequest, errBadRange)
		return
	}

	baseQuery, overrides := corridor.ParseOverrides(rawQuery)
	cfg := s.cfgManager.Get()
	for _, o := range overrides {
		applyOverride(cfg, o)
	}
	if err := cfg.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	metric := baseQuery

	liveRaw, err := s.ds.QueryRange(ctx, metric, start, end, step)
	if err != nil {
		s.logger.Error("datasource query_range failed", zap.String("query", metric), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	histEnd := start
	histStart := histEnd - int64(cfg.CorridorParams.HistoricalPeriodDays)*86400 - int64(cfg.CorridorParams.HistoricalOffsetDays)*86400
	histRaw, err := s.ds.QueryRange(ctx, metric, histStart, histEnd, cfg.CorridorParams.Step)
	if err != nil {
		s.logger.Error("datasource historical query_range failed", zap.String("query", metric), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	liveGroups := corridor.GroupSamplesWithLabels(liveRaw)
	histGroups := corridor.GroupSamplesWithLabels(histRaw)
	histByFP := make(map[string][]corridor.Sample, len(histGroups))
	for _, g := range histGroups {
		histByFP[g.Fingerprint] = g.Samples
	}

	configHash := corridor.ConfigHash(configAsMap(cfg))

	recomputeStart := time.Now()
	results, skipped := corridor.ProcessGroups(
		ctx,
		s.store,
		logging.CorridorAdapter{Base: s.logger},
		metric,
		liveGroups,
		histByFP,
		corridorParams(cfg),
		configHash,
		recomputeStart,
		corridor.Window{Start: start, End: end, Step: step},
		widthParams(cfg),
		cfg.Timeout.MaxMetrics,
	)
	if skipped > 0 {
		metrics.GroupsSkippedTotal.WithLabelValues("timeout").Add(float64(skipped))
	}

	entries := make([]MatrixEntry, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			s.logger.Warn("group processing failed", zap.String("fingerprint", res.Fingerprint), zap.Error(res.Err))
			continue
		}
		entry := FormatGroupResult(res)
		entries = append(entries, entry)

		metrics.CacheLookupsTotal.WithLabelValues(res.CacheOutcome).Inc()
		if res.CacheOutcome == "miss" {
			metrics.DFTRebuildsTotal.WithLabelValues(metric).Inc()
			metrics.RecomputeDuration.WithLabelValues(metric).Observe(time.Since(recomputeStart).Seconds())
		}
		if res.Response.WidthRepairs > 0 {
			metrics.WidthRepairsTotal.WithLabelValues(metric).Add(float64(res.Response.WidthRepairs))
		}
		metrics.ConcernScore.WithLabelValues(metric, res.Fingerprint, "above").Set(res.Response.ConcernAbove)
		metrics.ConcernScore.WithLabelValues(metric, res.Fingerprint, "below").Set(res.Response.ConcernBelow)

		key := cachestore.CacheKey(metric, res.Fingerprint)
		s.hub.Publish(key, metric, res.Fingerprint, entry)
	}

	writeJSON(w, http.StatusOK, MatrixResponse{
		Status: "success",
		Data:   MatrixData{ResultType: "matrix", Result: entries},
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"status": "error", "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseUnix(s string) (int64, error) {
	if s == "" {
		return 0, errMissingQuery
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, errMissingQuery
	}
	return strconv.ParseInt(s, 10, 64)
}
