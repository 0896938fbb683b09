package datasource

import (
	"context"
	"sync"

	"github.com/corridorproxy/corridor-proxy/internal/corridor"
)

// StaticDataSource is an in-memory DataSource fake, grounded on the
// teacher's habit of keeping an entirely in-memory collaborator alongside
// the real adapter for tests. Samples are seeded per metric ahead of time;
// QueryRange filters them to [start,end] without interpolation — that step
// belongs to corridor.Interpolate, not the data source.
type StaticDataSource struct {
	mu      sync.RWMutex
	samples map[string][]corridor.RawSample
}

// NewStaticDataSource builds an empty fake ready for Seed calls.
func NewStaticDataSource() *StaticDataSource {
	return &StaticDataSource{samples: make(map[string][]corridor.RawSample)}
}

// Seed registers samples under metric, overwriting any previous seed.
func (s *StaticDataSource) Seed(metric string, samples []corridor.RawSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[metric] = samples
}

func (s *StaticDataSource) ListMetrics(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.samples))
	for name := range s.samples {
		names = append(names, name)
	}
	return names, nil
}

func (s *StaticDataSource) QueryRange(ctx context.Context, metric string, start, end, step int64) ([]corridor.RawSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, ok := s.samples[metric]
	if !ok {
		return nil, nil
	}

	out := make([]corridor.RawSample, 0, len(all))
	for _, raw := range all {
		if raw.T >= start && raw.T <= end {
			out = append(out, raw)
		}
	}
	return out, nil
}
