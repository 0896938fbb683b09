// Package main is the entry point for the corridor-proxy server.
//
// Responsibilities:
//   - Load and validate the dotted-key INI configuration, with hot-reload
//     on file change
//   - Open the persistent corridor cache (SQLite)
//   - Construct the upstream DataSource
//   - Start the public HTTP surface (/api/v1/*, /health, /stream)
//   - Start a private metrics listener, never exposed on the public mux
//   - Implement graceful shutdown on SIGINT/SIGTERM
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/corridorproxy/corridor-proxy/internal/api"
	"github.com/corridorproxy/corridor-proxy/internal/cachestore"
	"github.com/corridorproxy/corridor-proxy/internal/config"
	"github.com/corridorproxy/corridor-proxy/internal/datasource"
	"github.com/corridorproxy/corridor-proxy/internal/logging"
)

func main() {
	configPath := flag.String("config", "corridor.ini", "path to the dotted-key INI configuration file")
	metricsAddr := flag.String("metrics-address", ":9100", "address the private metrics listener binds to")
	flag.Parse()

	mgr := config.NewManager()
	if err := mgr.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := mgr.Get()

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := cachestore.Open(cfg.Cache.Database.Path)
	if err != nil {
		logger.Fatal("failed to open cache store", zap.Error(err))
	}
	defer store.Close()

	ds := datasource.NewHTTPDataSource(cfg.Datasource.BaseURL, cfg.Datasource.Timeout)

	srv := api.NewServer(mgr, store, ds, logger)

	if err := mgr.Watch(func(updated *config.Config) {
		logger.Info("configuration reloaded", zap.String("path", *configPath))
	}); err != nil {
		logger.Warn("configuration watch not armed", zap.Error(err))
	}

	if err := srv.Start(cfg.Server.Address); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
	logger.Info("corridor-proxy listening", zap.String("address", cfg.Server.Address))

	metricsServer := &http.Server{
		Addr:    *metricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener error", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("address", *metricsAddr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("error stopping server", zap.Error(err))
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("error stopping metrics listener", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
