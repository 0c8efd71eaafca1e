// Command analyzer implements the hydronic energy-inference service.
//
// The analyzer runs an analysis pass that:
//  1. Loads a historical sensor series from a configured source
//     (CSV export, HTTP API, Kafka topic, or synthetic data)
//  2. Optionally enriches it with outside/room temperatures from InfluxDB
//  3. Infers burner status, calibrates burner power, decomposes energy per
//     circuit, and classifies steady-state samples
//  4. Stores the resulting report for retrieval via HTTP API
//
// The analyzer serves an HTTP API on port 8082 (configurable) providing:
//   - GET /report/latest?site=<name> - Retrieve the latest energy report
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	analyzer \
//	  -site=home \
//	  -source=csv \
//	  -window=168h \
//	  -plant-file=plant.yaml
//
// Environment variables:
//
//	SITE          - Site name (required)
//	SOURCE        - Source kind: csv, http, kafka, synthetic (required)
//	SOURCE_*      - Source-specific configuration (e.g. SOURCE_PATH)
//	WINDOW        - Historical window to analyze (default: 168h)
//	INTERVAL      - Analysis loop interval (default: 0 = run once)
//	PLANT_FILE    - YAML file with plant parameters
//	STORAGE       - Storage backend: memory, redis, postgres (default: memory)
//	INFLUX_URL    - InfluxDB URL for climate enrichment (default: disabled)
//	LOG_LEVEL     - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT    - Logging format: text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HatiCode/hydronic/cmd/analyzer/config"
	"github.com/HatiCode/hydronic/cmd/analyzer/logger"
	"github.com/HatiCode/hydronic/cmd/analyzer/metrics"
	"github.com/HatiCode/hydronic/cmd/analyzer/router"
	"github.com/HatiCode/hydronic/pkg/analysis"
	"github.com/HatiCode/hydronic/pkg/enrich"
	"github.com/HatiCode/hydronic/pkg/httpx"
	"github.com/HatiCode/hydronic/pkg/sources"
	"github.com/HatiCode/hydronic/pkg/storage"
	hydronictls "github.com/HatiCode/hydronic/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting hydronic analyzer",
		"version", version,
		"site", cfg.Site,
		"source", cfg.Source,
	)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	plant, err := cfg.LoadAnalysisConfig()
	if err != nil {
		log.Error("failed to load plant configuration", "error", err)
		os.Exit(1)
	}

	source, err := sources.New(cfg.Source, cfg.SourceConfig)
	if err != nil {
		log.Error("failed to create source", "error", err)
		os.Exit(1)
	}

	var enricher *enrich.InfluxEnricher
	if cfg.InfluxURL != "" {
		enricher = &enrich.InfluxEnricher{
			URL:          cfg.InfluxURL,
			Token:        cfg.InfluxToken,
			Org:          cfg.InfluxOrg,
			Bucket:       cfg.InfluxBucket,
			Measurement:  cfg.InfluxMeasurement,
			OutsideField: cfg.InfluxOutsideField,
			RoomField:    cfg.InfluxRoomField,
			MaxAge:       cfg.InfluxMaxAge,
			Logger:       log,
		}
	}

	pipeline, err := analysis.NewPipeline(plant, log)
	if err != nil {
		log.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}

	store, err := newStore(cfg, log)
	if err != nil {
		log.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}()
	}

	a := New(
		cfg.Site,
		source,
		enricher,
		pipeline,
		store,
		cfg.Window,
		log,
		metrics.New(cfg.Site),
	)

	// A report is stale when two loop intervals pass without a refresh.
	// Single-pass mode never marks the report stale.
	var staleAfter time.Duration
	if cfg.Interval > 0 {
		staleAfter = 2 * cfg.Interval
	}
	mux := router.SetupRoutes(store, staleAfter, log)
	httpServer := httpx.NewServer(cfg.Listen, mux, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.Run(ctx, cfg.Interval); err != nil && err != context.Canceled {
			log.Error("analysis loop failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- startServer(httpServer, cfg.TLS)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

// newStore creates the configured report store.
func newStore(cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case "redis":
		log.Info("using redis storage", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.RedisTTL)
		return storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
	case "postgres":
		log.Info("using postgres storage")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		log.Info("using in-memory storage")
		return storage.NewMemoryStore(), nil
	}
}

// startServer starts the HTTP server, with mTLS when configured.
func startServer(server *httpx.Server, tlsCfg hydronictls.Config) error {
	if !tlsCfg.Enabled {
		return server.Start()
	}

	serverTLS, err := hydronictls.NewServerTLSConfig(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.CAFile)
	if err != nil {
		return err
	}
	server.SetTLSConfig(serverTLS)

	return server.StartTLS(tlsCfg.CertFile, tlsCfg.KeyFile)
}
