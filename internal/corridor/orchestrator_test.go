package corridor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCacheStore is an in-memory CacheStore for orchestrator tests, grounded
// on the real cachestore.Store's shouldRecreate semantics (spec.md §4.7):
// false iff the entry exists, its config hash matches, its age is within
// maxTTL, and a matching placeholder stays sticky regardless of hash.
type fakeCacheStore struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: make(map[string]*CacheEntry)}
}

func (f *fakeCacheStore) key(query, fingerprint string) string { return query + "|" + fingerprint }

func (f *fakeCacheStore) Load(query, fingerprint string) (*CacheEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[f.key(query, fingerprint)]
	return e, ok, nil
}

func (f *fakeCacheStore) Save(query, fingerprint string, entry *CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[f.key(query, fingerprint)] = entry
	return nil
}

func (f *fakeCacheStore) ShouldRecreate(query, fingerprint, configHash string, maxTTL time.Duration, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[f.key(query, fingerprint)]
	if !ok {
		return true, nil
	}
	age := now.Sub(e.CreatedAt)
	if e.IsPlaceholder && age <= maxTTL {
		return false, nil
	}
	if e.ConfigHash == configHash && age <= maxTTL {
		return false, nil
	}
	return true, nil
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

func defaultTestParams() Params {
	return Params{
		Step:                   60,
		WindowSize:             5,
		MarginPercent:          10,
		MaxHarmonics:           3,
		MinAmplitude:           0.01,
		MinDataPoints:          10,
		MinCorridorWidthFactor: 0.1,
		Percentiles:            PercentileConfig{Percentiles: []int{50, 90, 99}},
		DefaultPercentiles:     DefaultPercentiles{Duration: 50, Size: 50, DurationMultiplier: 1, SizeMultiplier: 1},
		MaxRebuildCount:        50,
		MaxTTL:                 time.Hour,
	}
}

func history(n int) []Sample {
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = Sample{T: int64(i * 60), V: float64(i % 5)}
	}
	return out
}

func TestRecalculateStatsSparseHistoryReturnsPlaceholder(t *testing.T) {
	store := newFakeCacheStore()
	params := defaultTestParams()

	entry, outcome, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(4), params, "hash-a", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "placeholder", outcome)
	assert.True(t, entry.IsPlaceholder)

	resp := BuildResponse(entry, []Sample{{T: 0, V: 1}, {T: 1, V: 2}}, 0, 1, 1, WidthParams{MinCorridorWidthFactor: 0.1}, params.DefaultPercentiles)
	assert.Empty(t, resp.DFTUpper)
	assert.Empty(t, resp.DFTLower)
	assert.Equal(t, []Sample{{T: 0, V: 1}, {T: 1, V: 2}}, resp.Samples)
}

func TestRecalculateStatsFullHistoryProducesUsableCorridor(t *testing.T) {
	store := newFakeCacheStore()
	params := defaultTestParams()

	entry, outcome, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(50), params, "hash-a", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "miss", outcome)
	assert.False(t, entry.IsPlaceholder)
	assert.Equal(t, 1, entry.DFTRebuildCount)
}

func TestRecalculateStatsReusesCacheWithinTTLAndMatchingHash(t *testing.T) {
	store := newFakeCacheStore()
	params := defaultTestParams()
	now := time.Now()

	first, outcome1, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(50), params, "hash-a", now)
	require.NoError(t, err)
	require.Equal(t, "miss", outcome1)

	second, outcome2, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(50), params, "hash-a", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "hit", outcome2)
	assert.Same(t, first, second)
}

func TestRecalculateStatsConfigInvalidationForcesRecompute(t *testing.T) {
	store := newFakeCacheStore()
	params := defaultTestParams()
	now := time.Now()

	_, outcome1, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(50), params, "hash-a", now)
	require.NoError(t, err)
	require.Equal(t, "miss", outcome1)

	entry2, outcome2, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(50), params, "hash-b", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "miss", outcome2)
	assert.Equal(t, 2, entry2.DFTRebuildCount)
}

func TestRecalculateStatsPlaceholderIsSticky(t *testing.T) {
	store := newFakeCacheStore()
	params := defaultTestParams()
	now := time.Now()

	placeholder, outcome1, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(2), params, "hash-a", now)
	require.NoError(t, err)
	require.Equal(t, "placeholder", outcome1)

	still, outcome2, err := RecalculateStats(store, nopLogger{}, "up", "fp1", nil, history(2), params, "hash-b", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "placeholder", outcome2)
	assert.Same(t, placeholder, still)
}

func TestProcessGroupsSkipsBeyondMaxMetrics(t *testing.T) {
	store := newFakeCacheStore()
	params := defaultTestParams()

	groups := []GroupedSeries{
		{Fingerprint: "a", Labels: LabelSet{"x": "a"}, Samples: history(50)},
		{Fingerprint: "b", Labels: LabelSet{"x": "b"}, Samples: history(50)},
		{Fingerprint: "c", Labels: LabelSet{"x": "c"}, Samples: history(50)},
	}
	historyByFP := map[string][]Sample{"a": history(50), "b": history(50), "c": history(50)}

	results, skipped := ProcessGroups(
		context.Background(), store, nopLogger{}, "up", groups, historyByFP,
		params, "hash-a", time.Now(), Window{Start: 0, End: 60, Step: 60},
		WidthParams{MinCorridorWidthFactor: 0.1}, 2,
	)

	assert.Len(t, results, 2)
	assert.Equal(t, 1, skipped)
}

func TestProcessGroupsZeroMaxMetricsMeansUnbounded(t *testing.T) {
	store := newFakeCacheStore()
	params := defaultTestParams()

	groups := []GroupedSeries{
		{Fingerprint: "a", Labels: LabelSet{"x": "a"}, Samples: history(50)},
		{Fingerprint: "b", Labels: LabelSet{"x": "b"}, Samples: history(50)},
	}
	historyByFP := map[string][]Sample{"a": history(50), "b": history(50)}

	results, skipped := ProcessGroups(
		context.Background(), store, nopLogger{}, "up", groups, historyByFP,
		params, "hash-a", time.Now(), Window{Start: 0, End: 60, Step: 60},
		WidthParams{MinCorridorWidthFactor: 0.1}, 0,
	)

	assert.Len(t, results, 2)
	assert.Equal(t, 0, skipped)
}
