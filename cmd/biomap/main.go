package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/biodiversity-map/internal/adapter/http"
	"github.com/couchcryptid/biodiversity-map/internal/adapter/inaturalist"
	kafkaadapter "github.com/couchcryptid/biodiversity-map/internal/adapter/kafka"
	"github.com/couchcryptid/biodiversity-map/internal/adapter/nominatim"
	"github.com/couchcryptid/biodiversity-map/internal/config"
	"github.com/couchcryptid/biodiversity-map/internal/observability"
	"github.com/couchcryptid/biodiversity-map/internal/orchestrator"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geocoder := nominatim.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.UpstreamTimeout, metrics, logger)
	source := inaturalist.NewClient(cfg.INaturalistURL, cfg.UserAgent, cfg.UpstreamTimeout, metrics, logger)

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var (
		publisher orchestrator.SnapshotPublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		metrics.SnapshotEnabled.Set(1)
		logger.Info("kafka snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka snapshot publishing disabled")
	}

	orch := orchestrator.New(geocoder, source, publisher, orchestrator.Options{
		RadiusKm: cfg.SearchRadiusKm,
		Zoom:     cfg.MapZoom,
	}, logger, metrics)
	sessions := orchestrator.NewStore(metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, sessions, orch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sweepSessions(gctx, sessions, cfg.SessionIdle, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		orch.SetReady(false)
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	orch.SetReady(true)

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		exitCode = 1
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	stop()
	os.Exit(exitCode)
}

// sweepSessions drops idle sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions *orchestrator.Store, maxIdle time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(max(maxIdle/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(maxIdle); n > 0 {
				logger.Debug("idle sessions dropped", "count", n, "remaining", sessions.Len())
			}
		}
	}
}
