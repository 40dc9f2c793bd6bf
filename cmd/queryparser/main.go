// Command queryparser serves the full-text query parser over HTTP.
//
// Parse results are cached in-process and, when Redis is reachable, shared
// across replicas. Parse events are published to Kafka for the analytics
// service.
//
// Usage:
//
//	go run ./cmd/queryparser [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/cache"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/classifier"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/factory"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/handler"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/keyword"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/tracing"
)

// eventSink is satisfied by both analytics collectors.
type eventSink interface {
	analytics.Tracker
	Start(ctx context.Context)
	Close()
}

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
		slog.Error("query parser service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("query parser service stopped")
}

func run(cfg *config.Config) error {
	slog.Info("starting query parser service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer("queryparser", cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	repo := classifier.NewRepository()
	if err := classifier.RegisterBasic(repo); err != nil {
		return fmt.Errorf("registering classifiers: %w", err)
	}
	repo.Freeze()

	parsers := factory.New(keyword.Builtin(), repo, m)
	if _, err := parsers.Build(cfg.Parser); err != nil {
		return fmt.Errorf("building configured parser: %w", err)
	}
	slog.Info("parser ready", "language", cfg.Parser.LanguageCode, "max_query_length", cfg.Parser.MaxQueryLength)

	checker := health.NewChecker("queryparser")
	g, gctx := errgroup.WithContext(ctx)

	var redisClient *pkgredis.Client
	var parseCache *cache.ParseCache
	if cfg.Cache.Enabled {
		var err error
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, parse cache is local only", "error", err)
			parseCache = cache.New(cfg.Cache, cfg.Redis.CacheTTL, nil, m)
		} else {
			defer redisClient.Close()
			parseCache = cache.New(cfg.Cache, cfg.Redis.CacheTTL, redisClient, m)
			checker.RegisterPing("redis", false, redisClient.Ping)
			g.Go(func() error {
				err := redisClient.Subscribe(gctx, cfg.Cache.InvalidateChannel, func(from string) {
					parseCache.FlushLocal()
					slog.Info("local parse cache flushed", "requested_by", from)
				})
				if err != nil {
					slog.Warn("cache invalidation channel unavailable", "error", err)
				}
				return nil
			})
			slog.Info("parse cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var sink eventSink
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ParseEvents)
		defer producer.Close()
		if cfg.Analytics.BatchSize > 0 {
			sink = collector.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval, m)
		} else {
			sink = analytics.NewCollector(producer, cfg.Analytics.BufferSize, m)
		}
		sink.Start(gctx)
		defer sink.Close()
		checker.RegisterPing("kafka", false, func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		})
		slog.Info("parse events publishing", "topic", producer.Topic(), "batch_size", cfg.Analytics.BatchSize)
	}

	deps := handler.Deps{
		Factory:           parsers,
		Classifiers:       repo,
		Parser:            cfg.Parser,
		Cache:             parseCache,
		InvalidateChannel: cfg.Cache.InvalidateChannel,
		Tracer:            tracing.NewTracer(cfg.Tracing),
		Metrics:           m,
	}
	if redisClient != nil {
		deps.Publisher = redisClient
	}
	if sink != nil {
		deps.Tracker = sink
	}
	h := handler.New(deps)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/parse", h.Parse)
	mux.HandleFunc("GET /api/v1/tokens", h.Tokens)
	mux.HandleFunc("GET /api/v1/classifiers", h.Classifiers)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.Handle("POST /api/v1/cache/invalidate", middleware.RequireKey(cfg.Server.AdminKeys)(http.HandlerFunc(h.CacheInvalidate)))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
		defer limiter.Close()
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("query parser service listening", "addr", server.Addr)
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
