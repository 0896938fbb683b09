package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/corridorproxy/corridor-proxy/internal/corridor"
)

// localTimeLayout is the "YYYY-MM-DD HH:MM:SS" local-time format spec.md §6
// requires queryRange samples to carry and this client parses back to
// epoch seconds.
const localTimeLayout = "2006-01-02 15:04:05"

// HTTPDataSource is the thin real DataSource implementation: one HTTP call
// per operation against a configured upstream base URL, no panel discovery,
// auth, or retry beyond what a single request needs.
type HTTPDataSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPDataSource builds an HTTPDataSource with a bounded-timeout client.
func NewHTTPDataSource(baseURL string, timeout time.Duration) *HTTPDataSource {
	return &HTTPDataSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type metricsResponse struct {
	Metrics []string `json:"metrics"`
}

func (h *HTTPDataSource) ListMetrics(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"/metrics", nil)
	if err != nil {
		return nil, corridor.NewDataSourceError("*", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, corridor.NewDataSourceError("*", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, corridor.NewDataSourceError("*", fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var out metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, corridor.NewDataSourceError("*", err)
	}
	return out.Metrics, nil
}

type rawSampleWire struct {
	Time   string            `json:"time"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels"`
}

type queryRangeResponse struct {
	Samples []rawSampleWire `json:"samples"`
}

func (h *HTTPDataSource) QueryRange(ctx context.Context, metric string, start, end, step int64) ([]corridor.RawSample, error) {
	q := url.Values{}
	q.Set("metric", metric)
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))
	q.Set("step", strconv.FormatInt(step, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"/query_range?"+q.Encode(), nil)
	if err != nil {
		return nil, corridor.NewDataSourceError(metric, err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, corridor.NewDataSourceError(metric, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, corridor.NewDataSourceError(metric, fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var out queryRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, corridor.NewDataSourceError(metric, err)
	}

	samples := make([]corridor.RawSample, 0, len(out.Samples))
	for _, s := range out.Samples {
		t, err := time.ParseInLocation(localTimeLayout, s.Time, time.Local)
		if err != nil {
			return nil, corridor.NewDataSourceError(metric, fmt.Errorf("parsing sample time %q: %w", s.Time, err))
		}
		labels := make(corridor.LabelSet, len(s.Labels)+1)
		for k, v := range s.Labels {
			labels[k] = v
		}
		labels["__name__"] = metric
		samples = append(samples, corridor.RawSample{T: t.Unix(), V: s.Value, Labels: labels})
	}
	return samples, nil
}
