// Command api starts the mention monitor: the dashboard HTTP API and the
// scheduled monitoring passes.
//
// Monitoring passes fetch each watched subreddit's hot listing, match every
// post against the owners' keywords and profile terms, and store the first
// match per post as a mention. Mention and pass events are published to Kafka
// for the analytics service, or aggregated in process when Kafka is disabled.
//
// Usage:
//
//	go run ./cmd/api [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/api"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/monitor"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit/cache"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/redis"
	"golang.org/x/sync/errgroup"
)

const (
	eventBatchSize     = 100
	eventFlushInterval = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting mention monitor", "port", cfg.Server.Port)

	if err := run(cfg); err != nil {
		slog.Error("mention monitor failed", "error", err)
		os.Exit(1)
	}
	slog.Info("mention monitor stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	if err := store.Migrate(cfg.Postgres.URL()); err != nil {
		return err
	}
	st := store.New(db)
	slog.Info("connected to postgres")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.RegisterPing("postgres", true, st.Ping)

	var (
		cacheStore cache.Store
		monitorOps []monitor.Option
	)
	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, running without listing cache and pass locks", "error", err)
	} else {
		defer rdb.Close()
		cacheStore = rdb
		monitorOps = append(monitorOps, monitor.WithLocker(rdb))
		checker.RegisterPing("redis", false, rdb.Ping)
		slog.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	redditClient, err := reddit.NewClient(cfg.Reddit, reddit.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("creating reddit client: %w", err)
	}
	listings := cache.New(redditClient, cacheStore, cfg.Redis.CacheTTL, m)

	var extra []api.Registrar
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MentionsDetected)
		defer producer.Close()
		events := collector.NewBatchCollector(producer, eventBatchSize, eventFlushInterval)
		events.Start(gctx)
		defer events.Close()
		monitorOps = append(monitorOps, monitor.WithEvents(events))
		slog.Info("kafka producer initialized", "topic", producer.Topic())
	} else {
		agg := analytics.NewAggregator(nil)
		monitorOps = append(monitorOps, monitor.WithEvents(agg))
		extra = append(extra, analytics.NewHandler(agg, nil))
		slog.Info("kafka disabled, aggregating analytics in process")
	}
	monitorOps = append(monitorOps, monitor.WithMetrics(m))

	svc := monitor.NewService(listings, st, monitor.Config{
		PostLimit:      cfg.Monitor.PostLimit,
		SubredditDelay: cfg.Monitor.SubredditDelay,
		LockTTL:        cfg.Redis.LockTTL,
		ContextWindow:  cfg.Matcher.ContextWindow,
	}, monitorOps...)

	catalog, err := suggest.LoadCatalog(cfg.Suggest.CatalogFile)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.API.RateLimitWindow)
	defer limiter.Close()

	h := api.NewHandler(st, svc, suggest.New(catalog, cfg.Suggest.MaxKeywords), listings,
		matcher.NewResolver(cfg.Matcher.ContextWindow),
		api.Limits{DefaultLimit: cfg.API.DefaultLimit, MaxLimit: cfg.API.MaxLimit},
	)
	router := api.NewRouter(h, api.RouterConfig{
		Health:          checker,
		Metrics:         m,
		Limiter:         limiter,
		RateLimit:       cfg.API.RateLimit,
		RateLimitWindow: cfg.API.RateLimitWindow,
		AllowOrigins:    cfg.API.AllowOrigins,
		RequestTimeout:  cfg.API.RequestTimeout,
		Extra:           extra,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Monitor.Enabled {
		scheduler := monitor.NewScheduler(svc, cfg.Monitor.Interval)
		g.Go(func() error { return scheduler.Run(gctx) })
	} else {
		slog.Info("scheduled monitoring disabled")
	}

	g.Go(func() error {
		slog.Info("mention monitor listening", "addr", server.Addr)
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

	return g.Wait()
}
