package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-tracker/internal/api/http"
	"github.com/i474232898/weather-tracker/internal/cache"
	"github.com/i474232898/weather-tracker/internal/config"
	"github.com/i474232898/weather-tracker/internal/logging"
	"github.com/i474232898/weather-tracker/internal/metrics"
	"github.com/i474232898/weather-tracker/internal/scheduler"
	"github.com/i474232898/weather-tracker/internal/store"
	"github.com/i474232898/weather-tracker/internal/weather"
	"github.com/i474232898/weather-tracker/internal/weather/providers"
)

func main() {
	// Load configuration (also reads .env if present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, logFile, err := logging.New(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logFile.Close()
	defer logger.Sync()

	var accessLog io.Writer
	if cfg.AccessLogFile != "" {
		accessFile, err := logging.Rotating(logging.Options{
			File:       cfg.AccessLogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		})
		if err != nil {
			logger.Fatal("failed to open access log", zap.String("path", cfg.AccessLogFile), zap.Error(err))
		}
		defer accessFile.Close()
		accessLog = accessFile
	}

	if cfg.UsesDefaultSecret() {
		logger.Warn("SECRET_KEY is not set; using the built-in default")
	}

	// SQLite file, created on first start.
	db := store.NewSQLiteStore(cfg.DBFile)
	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Fatal("failed to initialise database", zap.String("path", cfg.DBFile), zap.Error(err))
	}

	// Single outbound call per lookup, bounded by the client timeout.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)

	m := metrics.New()

	memo := cache.New[weather.Reading](cfg.FetchCacheTTL)
	listCache := cache.New[httpapi.CachedResponse](cfg.ListCacheTTL)
	plotCache := cache.New[httpapi.CachedResponse](cfg.PlotCacheTTL)

	service := weather.NewService(db, provider, memo, logger, m)

	// Periodic sweep of expired cache entries.
	sched := scheduler.New(cfg.CacheSweepInterval, map[string]scheduler.Sweeper{
		"fetch": memo,
		"list":  listCache,
		"plot":  plotCache,
	}, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Options{
		Deps: httpapi.Deps{
			Service:   service,
			Logger:    logger,
			Metrics:   m,
			ListCache: listCache,
			PlotCache: plotCache,
		},
		BodyLimit:   cfg.BodyLimit,
		ProxyHeader: cfg.TrustedProxyHeader,
		AccessLog:   accessLog,
	})

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		// Deferred closes must run, so no Fatal here.
		logger.Error("fiber server stopped", zap.Error(err))
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
