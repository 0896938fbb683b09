package api

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corridorproxy/corridor-proxy/internal/cachestore"
	"github.com/corridorproxy/corridor-proxy/internal/config"
	"github.com/corridorproxy/corridor-proxy/internal/corridor"
	"github.com/corridorproxy/corridor-proxy/internal/datasource"
)

func newTestServer(t *testing.T) (*Server, *datasource.StaticDataSource) {
	t.Helper()

	store, err := cachestore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ds := datasource.NewStaticDataSource()

	mgr := config.NewManager()
	cfgPath := filepath.Join(t.TempDir(), "corridor.ini")
	require.NoError(t, writeMinimalConfig(cfgPath))
	require.NoError(t, mgr.Load(cfgPath))

	srv := NewServer(mgr, store, ds, zap.NewNop())
	return srv, ds
}

func writeMinimalConfig(path string) error {
	content := "[corrdor_params]\nstep = 30\nwindow_size = 5\nmargin_percent = 0.1\nmin_data_points = 3\n"
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestHandleLabelValuesReturnsSeededMetrics(t *testing.T) {
	srv, ds := newTestServer(t)
	ds.Seed("up", []corridor.RawSample{{T: 0, V: 1}})

	req := httptest.NewRequest("GET", "/api/v1/label/__name__/values", nil)
	w := httptest.NewRecorder()
	srv.handleLabelValues(w, req)

	require.Equal(t, 200, w.Code)
	var resp namesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []string{"up"}, resp.Data)
}

func TestHandleQueryRangeMissingQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/query_range?start=0&end=100&step=10", nil)
	w := httptest.NewRecorder()
	srv.handleQueryRange(w, req)

	require.Equal(t, 400, w.Code)
}

func TestHandleQueryRangeInsufficientDataReturnsPlaceholder(t *testing.T) {
	srv, ds := newTestServer(t)
	ds.Seed("up", []corridor.RawSample{
		{T: 0, V: 1, Labels: corridor.LabelSet{"__name__": "up"}},
		{T: 30, V: 2, Labels: corridor.LabelSet{"__name__": "up"}},
	})

	req := httptest.NewRequest("GET", "/api/v1/query_range?query=up&start=0&end=60&step=30", nil)
	w := httptest.NewRecorder()
	srv.handleQueryRange(w, req)

	require.Equal(t, 200, w.Code)
	var resp MatrixResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
	require.Len(t, resp.Data.Result, 1)
	require.Empty(t, resp.Data.Result[0].CorridorUpper)
}
