// Command geocoverd loads configuration and starts the HTTP surface over
// the geohash/cover/compress library, with optional Redis memoization,
// MySQL audit logging, MQTT ingestion, and a dedicated metrics listener.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/flybeeper/geocover/compress"
	"github.com/flybeeper/geocover/internal/audit"
	"github.com/flybeeper/geocover/internal/cache"
	"github.com/flybeeper/geocover/internal/config"
	"github.com/flybeeper/geocover/internal/httpapi"
	"github.com/flybeeper/geocover/internal/ingest"
	"github.com/flybeeper/geocover/internal/metrics"
)

// Version, Commit, and BuildTime are set at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger := setupLogger(cfg)
	logger.WithField("version", Version).Info("starting geocoverd")
	metrics.SetAppInfo(Version, Commit, BuildTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var resultCache *cache.Cache
	if cfg.Redis.Enabled {
		resultCache, err = cache.New(cfg.Redis, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to build cache")
		}
		if err := resultCache.Ping(ctx); err != nil {
			logger.WithError(err).Warn("cache backend unreachable, continuing without memoization")
			resultCache = nil
		}
		defer func() {
			if resultCache != nil {
				resultCache.Close()
			}
		}()
	}

	var auditLog *audit.Log
	if cfg.MySQL.Enabled {
		auditLog, err = audit.Open(ctx, cfg.MySQL, logger)
		if err != nil {
			logger.WithError(err).Warn("audit log unavailable, continuing without it")
			auditLog = nil
		} else {
			defer auditLog.Close()
		}
	}

	var ingestClient *ingest.Client
	if cfg.MQTT.Enabled {
		accumulator := compress.NewAccumulator(cfg.Geo.CompressMinLevel, cfg.Geo.CompressMaxLevel)
		ingestClient, err = ingest.New(cfg.MQTT, logger, accumulator)
		if err != nil {
			logger.WithError(err).Warn("ingest client unavailable, continuing without it")
		} else if err := ingestClient.Connect(); err != nil {
			logger.WithError(err).Warn("failed to connect ingest client, continuing without it")
			ingestClient = nil
		} else {
			defer ingestClient.Disconnect()
		}
	}

	server := httpapi.NewServer(cfg, logger, resultCache, auditLog)
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Info("HTTP server stopped")
		}
	}()

	if cfg.Monitoring.MetricsEnabled {
		go func() {
			metricsServer := &http.Server{
				Addr:    ":" + cfg.Monitoring.MetricsPort,
				Handler: promhttp.Handler(),
			}
			logger.WithField("port", cfg.Monitoring.MetricsPort).Info("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil {
				logger.WithError(err).Warn("metrics server stopped")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown error")
	}

	logger.Info("geocoverd stopped")
}

func setupLogger(cfg *config.Config) *logrus.Entry {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(config.LogLevel()); err == nil {
		base.SetLevel(level)
	}
	return base.WithField("environment", cfg.Environment)
}
