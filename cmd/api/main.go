package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/auction-archive/api/controllers"
	"github.com/angelmondragon/auction-archive/api/middleware"
	"github.com/angelmondragon/auction-archive/api/routes"
	"github.com/angelmondragon/auction-archive/internal/artworks"
	"github.com/angelmondragon/auction-archive/internal/extraction"
	"github.com/angelmondragon/auction-archive/internal/sessions"
	"github.com/angelmondragon/auction-archive/pkg/config"
	"github.com/angelmondragon/auction-archive/pkg/db"
	"github.com/angelmondragon/auction-archive/pkg/instance"
	"github.com/angelmondragon/auction-archive/pkg/logger"
	"github.com/angelmondragon/auction-archive/pkg/metrics"
	"github.com/angelmondragon/auction-archive/pkg/migrate"
	"github.com/angelmondragon/auction-archive/pkg/redis"
	"github.com/angelmondragon/auction-archive/pkg/storage"
	"github.com/angelmondragon/auction-archive/pkg/storage/gcs"
	"github.com/angelmondragon/auction-archive/pkg/storage/local"
	"github.com/angelmondragon/auction-archive/pkg/storage/s3"
	"github.com/angelmondragon/auction-archive/pkg/vision/gemini"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logFormat := ""
	if cfg.App.IsDev() {
		logFormat = logger.FormatConsole
	}
	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      logFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	health := map[string]controllers.Pinger{"database": dbClient}

	var (
		sessionStore sessions.Store
		rateCounter  middleware.RateLimiterStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		sessionStore = sessions.NewRedisStore(redisClient, cfg.Session.TTL)
		rateCounter = redisClient
		health["redis"] = redisClient
	} else {
		logg.Info(ctx, "redis not configured, keeping sessions in memory")
		sessionStore = sessions.NewMemoryStore(cfg.Session.TTL)
		rateCounter = middleware.NewMemoryCounter()
	}

	blobStore, mediaDir, err := newBlobStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap blob storage", err)
		os.Exit(1)
	}
	health["storage"] = blobStore

	provider := gemini.New(gemini.Options{BaseURL: cfg.Vision.BaseURL})
	extractionService, err := extraction.NewService(provider, extraction.Options{
		Timeout:     cfg.Vision.Timeout,
		MaxAttempts: cfg.Vision.MaxAttempts,
		Preference:  cfg.Vision.Preference,
	}, logg, pipelineMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create extraction service", err)
		os.Exit(1)
	}

	artworksService, err := artworks.NewService(
		artworks.NewRepository(dbClient.DB()),
		dbClient,
		blobStore,
		artworks.Options{
			DefaultCommissionPct: cfg.Valuation.CommissionPct(),
			DefaultAuctionHouse:  cfg.Valuation.DefaultAuctionHouse,
			MaxImageBytes:        cfg.Media.MaxUploadBytes(),
			StorageTimeout:       cfg.Storage.Timeout,
		},
		logg,
		pipelineMetrics,
	)
	if err != nil {
		logg.Error(ctx, "failed to create artworks service", err)
		os.Exit(1)
	}

	sessionService, err := sessions.NewService(sessionStore, extractionService, artworksService, cfg.Session, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"instance":        instance.GetID(),
		"storage_driver":  cfg.Storage.Driver,
		"session_backend": sessionBackend(cfg),
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessionService,
		Artworks:    artworksService,
		Metrics:     pipelineMetrics,
		Gatherer:    registry,
		RateCounter: rateCounter,
		Health:      health,
		MediaDir:    mediaDir,
		MediaPrefix: cfg.Local.PublicBase,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      cfg.Vision.Timeout*time.Duration(max(cfg.Vision.MaxAttempts, 1)) + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}

// newBlobStore picks the configured driver. The returned directory is set
// only for the local driver, whose files the API serves itself.
func newBlobStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.BlobStore, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case config.StorageDriverGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		return client, "", err
	case config.StorageDriverS3:
		store, err := s3.New(ctx, cfg.S3)
		return store, "", err
	default:
		store, err := local.New(cfg.Local.Dir, cfg.Local.PublicBase)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	}
}

func sessionBackend(cfg *config.Config) string {
	if cfg.Redis.Enabled() {
		return "redis"
	}
	return "memory"
}
