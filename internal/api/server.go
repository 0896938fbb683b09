package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/corridorproxy/corridor-proxy/internal/api/stream"
	"github.com/corridorproxy/corridor-proxy/internal/cachestore"
	"github.com/corridorproxy/corridor-proxy/internal/config"
	"github.com/corridorproxy/corridor-proxy/internal/corridor"
	"github.com/corridorproxy/corridor-proxy/internal/datasource"
	"github.com/corridorproxy/corridor-proxy/internal/metrics"
	"go.uber.org/zap"
)

// Server is the corridor-proxy's HTTP boundary: the three Prometheus-shaped
// endpoints spec.md §1 names, wired to a DataSource, the PersistentCache
// and the corridor pipeline.
type Server struct {
	cfgManager config.ConfigManager
	store      *cachestore.Store
	ds         datasource.DataSource
	logger     *zap.Logger
	hub        *stream.Hub

	httpServer *http.Server

	mu      sync.Mutex
	running bool
}

// NewServer wires a Server's dependencies together; it does not start
// listening until Start is called.
func NewServer(cfgManager config.ConfigManager, store *cachestore.Store, ds datasource.DataSource, logger *zap.Logger) *Server {
	return &Server{
		cfgManager: cfgManager,
		store:      store,
		ds:         ds,
		logger:     logger,
		hub:        stream.NewHub(logger),
	}
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/labels", s.handleLabels)
	mux.HandleFunc("/api/v1/label/__name__/values", s.handleLabelValues)
	mux.HandleFunc("/api/v1/query_range", s.handleQueryRange)
	mux.HandleFunc("/stream", s.hub.HandleWebSocket(cachestore.CacheKey))
}

// Start opens the HTTP listener in a background goroutine. Metrics are
// served on a private mux by cmd/server, never on this one, per SPEC_FULL
// §1.3's "never confused with the public /api/v1/* surface" note.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	s.registerHandlers(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	metrics.WebSocketConnections.Set(0)
	return nil
}

// Stop gracefully shuts down the HTTP listener.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Hub returns the stream fan-out hub that handleQueryRange publishes each
// formatted group result into.
func (s *Server) Hub() *stream.Hub { return s.hub }

// corridorParams resolves one config.Config into the corridor.Params
// the corridor package consumes.
func corridorParams(cfg *config.Config) corridor.Params {
	return corridor.Params{
		Step:                   cfg.CorridorParams.Step,
		WindowSize:             cfg.CorridorParams.WindowSize,
		MarginPercent:          cfg.CorridorParams.MarginPercent,
		MaxHarmonics:           cfg.CorridorParams.MaxHarmonics,
		MinAmplitude:           cfg.CorridorParams.MinAmplitude,
		MinDataPoints:          cfg.CorridorParams.MinDataPoints,
		MinCorridorWidthFactor: cfg.CorridorParams.MinCorridorWidthFactor,
		UseCommonTrend:         cfg.CorridorParams.UseCommonTrend,
		Percentiles:            corridor.PercentileConfig{Percentiles: cfg.Cache.Percentiles},
		DefaultPercentiles: corridor.DefaultPercentiles{
			Duration:           int(cfg.CorridorParams.DefaultPercentiles.Duration),
			Size:               int(cfg.CorridorParams.DefaultPercentiles.Size),
			DurationMultiplier: cfg.CorridorParams.DefaultPercentiles.DurationMultiplier,
			SizeMultiplier:     cfg.CorridorParams.DefaultPercentiles.SizeMultiplier,
		},
		MaxRebuildCount: cfg.Cache.MaxRebuildCount,
		MaxTTL:          cfg.MaxTTLDuration(),
	}
}

func widthParams(cfg *config.Config) corridor.WidthParams {
	return corridor.WidthParams{MinCorridorWidthFactor: cfg.CorridorParams.MinCorridorWidthFactor}
}
