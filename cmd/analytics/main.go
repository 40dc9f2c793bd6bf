// Command analytics aggregates parse events from Kafka.
//
// It keeps a rolling in-memory window (parse counts, strategies, classes,
// warnings, latency percentiles, top queries), persists each window to
// PostgreSQL on a cron schedule and serves both over HTTP.
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

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(cfg *config.Config) error {
	slog.Info("starting analytics service", "port", cfg.Analytics.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agg := analytics.NewAggregator(m)
	checker := health.NewChecker("analytics")
	g, gctx := errgroup.WithContext(ctx)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ParseEvents, analytics.HandleEvent(agg))
	g.Go(func() error {
		return consumer.Start(gctx)
	})
	checker.RegisterPing("kafka", true, func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	})
	slog.Info("consuming parse events", "topic", cfg.Kafka.Topics.ParseEvents, "group", cfg.Kafka.ConsumerGroup)

	var history analytics.HistoryFunc
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, analytics windows are not persisted", "error", err)
	} else {
		defer db.Close()
		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		scheduler, err := aggregator.NewScheduler(store, agg, cfg.Analytics.SnapshotSchedule)
		if err != nil {
			return err
		}
		g.Go(func() error {
			scheduler.Start(gctx)
			return nil
		})
		history = func(ctx context.Context, limit int) (any, error) {
			return store.ListSnapshots(ctx, limit)
		}
		checker.RegisterPing("postgres", false, db.Ping)
		slog.Info("analytics snapshots scheduled", "schedule", cfg.Analytics.SnapshotSchedule)
	}

	h := analytics.NewHandler(agg, history)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
