// Command analytics starts the standalone mention analytics service.
//
// It consumes mention and pass events from Kafka, aggregates them in memory
// (mentions by match type, top subreddits and terms, pass latency, duplicates
// and fetch errors), snapshots the totals to PostgreSQL once a minute, and
// serves GET /api/v1/analytics and GET /api/v1/analytics/snapshots.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/postgres"
	"golang.org/x/sync/errgroup"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	if !cfg.Kafka.Enabled {
		slog.Error("analytics service needs kafka; set kafka.enabled")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := store.Migrate(cfg.Postgres.URL()); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	snapshots := aggregator.NewStore(db)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MentionsDetected, nil)
	defer consumer.Close()
	agg := analytics.NewAggregator(consumer)
	if latest, err := snapshots.LatestSnapshot(ctx); err == nil && latest != nil {
		slog.Info("previous snapshot found",
			"total_mentions", latest.TotalMentions,
			"passes_completed", latest.PassesCompleted,
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := agg.Start(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("aggregator: %w", err)
		}
		return nil
	})
	snapshots.StartPeriodicSave(gctx, agg, snapshotInterval)
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.MentionsDetected)

	checker := health.NewChecker()
	checker.RegisterPing("postgres", false, db.Ping)

	mux := http.NewServeMux()
	mux.Handle("GET /health/live", checker.LiveHandler())
	mux.Handle("GET /health/ready", checker.ReadyHandler())
	analytics.NewHandler(agg, snapshots).Register(mux)

	var chain http.Handler = mux
	if cfg.Metrics.Enabled {
		m := metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m)
		defer shutdownMetrics(context.Background())
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.API.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
