package corridor

import (
	"context"
	"sync"
	"time"
)

// Logger is the minimal warning/error sink the orchestrator needs. It is
// satisfied by a thin adapter over *zap.Logger in internal/logging so this
// package stays free of a logging dependency.
type Logger interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// CacheStore is what StatsCacheOrchestrator needs from §4.7's PersistentCache:
// just enough to decide recompute-vs-reuse and persist the result. The
// concrete implementation lives in internal/cachestore; this package only
// depends on the interface, matching the teacher's habit of defining
// consumer-side interfaces next to the code that calls them.
type CacheStore interface {
	Load(query, fingerprint string) (*CacheEntry, bool, error)
	Save(query, fingerprint string, entry *CacheEntry) error
	ShouldRecreate(query, fingerprint, configHash string, maxTTL time.Duration, now time.Time) (bool, error)
}

// Params bundles the corrdor_params.* and cache.* configuration keys
// spec.md §6 lists, resolved (including any per-query overrides already
// applied) into the values the pipeline consumes directly.
type Params struct {
	Step                   int64
	WindowSize             int
	MarginPercent          float64
	MaxHarmonics           int
	MinAmplitude           float64
	MinDataPoints          int
	MinCorridorWidthFactor float64
	UseCommonTrend         bool
	Percentiles            PercentileConfig
	DefaultPercentiles     DefaultPercentiles
	MaxRebuildCount        int
	MaxTTL                 time.Duration
}

// RecalculateStats is spec.md §4.6's recalculateStats: decide placeholder vs.
// full recompute for one (query, fingerprint) cache key, persist the result,
// and return the entry now governing that key plus a cache-outcome label
// ("hit", "miss" or "placeholder") for instrumentation by the caller.
func RecalculateStats(
	store CacheStore,
	logger Logger,
	query, fingerprint string,
	labels LabelSet,
	historySamples []Sample,
	params Params,
	configHash string,
	now time.Time,
) (*CacheEntry, string, error) {
	cached, found, err := store.Load(query, fingerprint)
	if err != nil {
		return nil, "", NewCacheStoreError("load", err)
	}
	if found && cached.IsPlaceholder {
		return cached, "placeholder", nil
	}

	if found {
		recreate, err := store.ShouldRecreate(query, fingerprint, configHash, params.MaxTTL, now)
		if err != nil && logger != nil {
			logger.Warnf("cache store error evaluating shouldRecreate for query=%s fingerprint=%s: %v", query, fingerprint, err)
		}
		if err == nil && !recreate {
			return cached, "hit", nil
		}
	}

	dataStart, dataEnd := historyBounds(historySamples)

	if len(historySamples) < params.MinDataPoints {
		entry := &CacheEntry{
			Query:         query,
			Fingerprint:   fingerprint,
			Labels:        cloneLabels(labels),
			DataStart:     dataStart,
			Step:          params.Step,
			TotalDuration: dataEnd - dataStart,
			ConfigHash:    configHash,
			CreatedAt:     now,
			LastAccessed:  now,
		}
		entry.placeholderMarker()

		if err := store.Save(query, fingerprint, entry); err != nil && logger != nil {
			logger.Warnf("cache store error persisting placeholder for query=%s fingerprint=%s: %v", query, fingerprint, err)
		}
		return entry, "placeholder", nil
	}

	interpolated := Interpolate(historySamples, dataStart, dataEnd, params.Step)

	upperRaw, lowerRaw, err := BuildBounds(interpolated, BoundsParams{
		WindowSize:    params.WindowSize,
		MarginPercent: params.MarginPercent,
	})
	if err != nil {
		return nil, "", err
	}

	dftParams := DFTParams{
		MaxHarmonics: params.MaxHarmonics,
		MinAmplitude: params.MinAmplitude,
	}
	upperCurve := BuildBoundaryCurve(upperRaw, dftParams)
	lowerCurve := BuildBoundaryCurve(lowerRaw, dftParams)

	if params.UseCommonTrend {
		upperCurve.Trend, lowerCurve.Trend = CommonTrend(upperRaw, lowerRaw, upperCurve.Trend, lowerCurve.Trend)
	}

	totalDuration := dataEnd - dataStart
	restoredUpper := Restore(upperCurve, dataStart, totalDuration, dataStart, dataEnd, params.Step, true)
	restoredLower := Restore(lowerCurve, dataStart, totalDuration, dataStart, dataEnd, params.Step, true)

	historyStats := CalculateAnomalyStats(historySamples, restoredUpper, restoredLower, params.Percentiles, false)

	rebuildCount := 1
	if found {
		rebuildCount = cached.DFTRebuildCount + 1
	}
	if rebuildCount > params.MaxRebuildCount && logger != nil {
		logger.Warnf("dft_rebuild_count %d exceeds cache.max_rebuild_count %d for query=%s fingerprint=%s", rebuildCount, params.MaxRebuildCount, query, fingerprint)
	}

	entry := &CacheEntry{
		Query:           query,
		Fingerprint:     fingerprint,
		Labels:          cloneLabels(labels),
		DataStart:       dataStart,
		Step:            params.Step,
		TotalDuration:   totalDuration,
		DFTRebuildCount: rebuildCount,
		ConfigHash:      configHash,
		HistoricalStats: historyStats,
		DFTUpper:        upperCurve,
		DFTLower:        lowerCurve,
		CreatedAt:       now,
		LastAccessed:    now,
	}

	if err := store.Save(query, fingerprint, entry); err != nil {
		if logger != nil {
			logger.Warnf("cache store error persisting query=%s fingerprint=%s: %v", query, fingerprint, err)
		}
		return entry, "miss", nil
	}

	return entry, "miss", nil
}

// Response is what a single (query, fingerprint) group contributes to a
// query_range reply: the live samples alongside the restored-and-width-
// ensured corridor and the current-window anomaly comparison.
type Response struct {
	Samples         []Sample
	DFTUpper        []Sample
	DFTLower        []Sample
	CurrentStats    AnomalyReport
	HistoricalStats AnomalyReport
	DFTRebuildCount int
	ConcernAbove    float64
	ConcernBelow    float64
	WidthRepairs    int
}

// BuildResponse restores entry's corridor over [start,end], enforces the
// minimum width, and compares liveSamples against it. A placeholder entry
// short-circuits to processInsufficientData per spec.md §4.6.
func BuildResponse(
	entry *CacheEntry,
	liveSamples []Sample,
	start, end, step int64,
	widthParams WidthParams,
	dp DefaultPercentiles,
) Response {
	if entry.IsPlaceholder {
		return processInsufficientData(liveSamples, entry)
	}

	restoredUpper := Restore(entry.DFTUpper, entry.DataStart, entry.TotalDuration, start, end, step, true)
	restoredLower := Restore(entry.DFTLower, entry.DataStart, entry.TotalDuration, start, end, step, true)

	upperEnsured, lowerEnsured, repaired := EnsureWidth(
		restoredUpper, restoredLower,
		dcAmplitude(entry.DFTUpper), dcAmplitude(entry.DFTLower),
		widthParams,
	)

	currentStats := CalculateAnomalyStats(liveSamples, upperEnsured, lowerEnsured, PercentileConfig{}, true)

	return Response{
		Samples:         liveSamples,
		DFTUpper:        upperEnsured,
		DFTLower:        lowerEnsured,
		CurrentStats:    currentStats,
		HistoricalStats: entry.HistoricalStats,
		DFTRebuildCount: entry.DFTRebuildCount,
		ConcernAbove:    ConcernScalar(entry.HistoricalStats.Above, currentStats.Above, dp),
		ConcernBelow:    ConcernScalar(entry.HistoricalStats.Below, currentStats.Below, dp),
		WidthRepairs:    repaired,
	}
}

// processInsufficientData is spec.md §4.6's response for a sparse series:
// the original samples untouched, an empty corridor, zero current stats, and
// whatever historical stats and rebuild count the placeholder carries.
func processInsufficientData(original []Sample, cached *CacheEntry) Response {
	return Response{
		Samples:         original,
		HistoricalStats: cached.HistoricalStats,
		DFTRebuildCount: cached.DFTRebuildCount,
	}
}

func dcAmplitude(curve BoundaryCurve) float64 {
	for _, h := range curve.Coeffs {
		if h.K == 0 {
			return h.Amplitude
		}
	}
	return 0
}

func historyBounds(samples []Sample) (start, end int64) {
	if len(samples) == 0 {
		return 0, 0
	}
	sorted := sortSamples(samples)
	return sorted[0].T, sorted[len(sorted)-1].T
}

func cloneLabels(l LabelSet) LabelSet {
	out := make(LabelSet, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// GroupResult is one label-fingerprint group's outcome from ProcessGroups.
type GroupResult struct {
	Fingerprint  string
	Labels       LabelSet
	Response     Response
	CacheOutcome string // "hit" | "miss" | "placeholder"
	Err          error
}

// Window is the requested query_range grid for the live comparison.
type Window struct {
	Start int64
	End   int64
	Step  int64
}

// ProcessGroups is spec.md §9's concurrency redesign made concrete: one
// goroutine per label-fingerprint group, bounded by a semaphore sized
// maxMetrics (timeout.max_metrics). Groups beyond that cap are skipped with
// a warning rather than processed, matching spec.md §5 ("further groups are
// skipped with a warning"). The per-shard write serialization this implies
// for the cache lives in internal/cachestore, not here — CacheStore is free
// to be called concurrently by this function.
func ProcessGroups(
	ctx context.Context,
	store CacheStore,
	logger Logger,
	query string,
	groups []GroupedSeries,
	historyByFingerprint map[string][]Sample,
	params Params,
	configHash string,
	now time.Time,
	window Window,
	widthParams WidthParams,
	maxMetrics int,
) (results []GroupResult, skipped int) {
	if maxMetrics <= 0 || maxMetrics > len(groups) {
		maxMetrics = len(groups)
	}
	processed := groups[:maxMetrics]
	skipped = len(groups) - maxMetrics
	if skipped > 0 && logger != nil {
		logger.Warnf("skipping %d of %d label-groups for query=%s: timeout.max_metrics=%d", skipped, len(groups), query, maxMetrics)
	}

	if len(processed) == 0 {
		return nil, skipped
	}

	sem := make(chan struct{}, maxMetrics)
	resCh := make(chan GroupResult, len(processed))
	var wg sync.WaitGroup

	for _, g := range processed {
		g := g
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				resCh <- GroupResult{Fingerprint: g.Fingerprint, Labels: g.Labels, Err: ctx.Err()}
				return
			default:
			}

			entry, outcome, err := RecalculateStats(store, logger, query, g.Fingerprint, g.Labels, historyByFingerprint[g.Fingerprint], params, configHash, now)
			if err != nil {
				resCh <- GroupResult{Fingerprint: g.Fingerprint, Labels: g.Labels, Err: err}
				return
			}

			resp := BuildResponse(entry, g.Samples, window.Start, window.End, window.Step, widthParams, params.DefaultPercentiles)
			resCh <- GroupResult{Fingerprint: g.Fingerprint, Labels: g.Labels, Response: resp, CacheOutcome: outcome}
		}()
	}

	wg.Wait()
	close(resCh)
	for r := range resCh {
		results = append(results, r)
	}
	return results, skipped
}
