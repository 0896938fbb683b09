package datasource

import (
	"context"
	"testing"

	"github.com/corridorproxy/corridor-proxy/internal/corridor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDataSourceListMetrics(t *testing.T) {
	ds := NewStaticDataSource()
	ds.Seed("up", []corridor.RawSample{{T: 1, V: 1}})
	ds.Seed("down", []corridor.RawSample{{T: 1, V: 0}})

	names, err := ds.ListMetrics(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"up", "down"}, names)
}

func TestStaticDataSourceQueryRangeFiltersWindow(t *testing.T) {
	ds := NewStaticDataSource()
	ds.Seed("up", []corridor.RawSample{
		{T: 0, V: 1},
		{T: 50, V: 2},
		{T: 100, V: 3},
	})

	samples, err := ds.QueryRange(context.Background(), "up", 10, 60, 10)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(50), samples[0].T)
}

func TestStaticDataSourceQueryRangeUnknownMetric(t *testing.T) {
	ds := NewStaticDataSource()
	samples, err := ds.QueryRange(context.Background(), "missing", 0, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, samples)
}
