package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/opsdash/internal/app"
	"github.com/odyssey-erp/opsdash/internal/observability"
	"github.com/odyssey-erp/opsdash/internal/platform/cache"
	"github.com/odyssey-erp/opsdash/internal/reports"
	reportshttp "github.com/odyssey-erp/opsdash/internal/reports/http"
	"github.com/odyssey-erp/opsdash/internal/upstream"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()

	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, payload cache disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}
	payloads := cache.NewPayloads(redisClient, cfg.UpstreamCacheTTL, metrics).WithLogger(logger)

	client, err := upstream.NewClient(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Timeout: cfg.UpstreamTimeout,
	}, upstream.ContextToken{Fallback: upstream.StaticToken(cfg.UpstreamToken)},
		upstream.WithCache(payloads),
		upstream.WithLogger(logger),
		upstream.WithRecorder(metrics),
	)
	if err != nil {
		logger.Error("build upstream client", slog.Any("error", err))
		os.Exit(1)
	}

	normalizer := reports.NewNormalizer(
		reports.WithDueSoonWindow(cfg.DueSoonWindowDays),
		reports.WithLogger(logger),
		reports.WithRecorder(metrics),
	)
	service := reports.NewService(client, normalizer, logger, metrics)
	reportHandler := reportshttp.NewHandler(logger, service,
		reportshttp.WithPageSize(cfg.PageSize),
		reportshttp.WithTimeout(cfg.AppRequestTimeout),
	)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reportHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("upstream", cfg.UpstreamBaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
