package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/frequency-optimizer/internal/metrics"
	"github.com/roman-kulish/frequency-optimizer/internal/noise"
	"github.com/roman-kulish/frequency-optimizer/internal/storage"
)

const (
	storageDir = "data"

	shutdownTimeout = 5 * time.Second
)

// Run sweeps every configured pulsar, persisting the surfaces in the data
// directory.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	dataDir, err := dataDirectory(&config.Storage)
	if err != nil {
		return err
	}

	store := storage.NewSqliteStore(filepath.Join(dataDir, config.Storage.database()))
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing storage", slog.String("error", err.Error()))
		}
	}()

	collector, err := metrics.NewSweepCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("creating metrics collector: %w", err)
	}

	if config.Settings.MetricsAddress != "" {
		stop := serveMetrics(config.Settings.MetricsAddress, collector.Handler(), logger)
		defer stop()
	}

	options := []func(*Orchestrator){
		WithWorkers(config.Settings.Workers),
		WithCollector(collector),
	}
	if config.Storage.Archive {
		options = append(options, WithArchiveDirectory(dataDir))
	}

	if config.NeedsScatteringTable() {
		corrector := noise.NewScatteringCorrector(config.ScatteringTable)
		if err = corrector.Prepare(); err != nil {
			return fmt.Errorf("loading scattering table: %w", err)
		}
		options = append(options, WithScatteringCorrector(corrector))
	}

	orchestrator := NewOrchestrator(store, logger, options...)
	if _, err = orchestrator.Run(ctx, config.Pulsars); err != nil {
		return err
	}
	return nil
}

func dataDirectory(config *StorageConfig) (string, error) {
	dir := config.DataDirectory
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return "", fmt.Errorf("checking storage directory '%s': %w", dir, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("invalid storage directory '%s'", dir)
	}
	return dir, nil
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", slog.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("stopping metrics server", slog.String("error", err.Error()))
		}
	}
}
