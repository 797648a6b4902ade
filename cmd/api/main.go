package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"mixer/internal/config"
	"mixer/internal/fetcher"
	"mixer/internal/httpapi"
	"mixer/internal/httpapi/handlers"
	"mixer/internal/manifest"
	"mixer/internal/mixer"
	"mixer/internal/pkg/logger"
	"mixer/internal/pkg/shutdown"
	"mixer/internal/render"
	"mixer/internal/retry"
	"mixer/internal/storage"
)

const version = "0.1.0"

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("failed to load configuration", err)
	}

	log := logger.New(cfg.Log)
	log.Info("starting mixer API",
		"version", version,
		"storage_provider", cfg.Storage.Provider,
	)

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, cfg.ShutdownTimeout)

	// Connect to Redis
	log.Info("connecting to Redis", "addr", cfg.RedisAddr)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	// Initialize storage provider
	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	policy := retry.Policy{
		MaxAttempts:  cfg.Fetch.MaxAttempts,
		Backoff:      retry.Exponential(cfg.Fetch.BackoffUnit),
		FinalBackoff: true,
	}
	fetch := fetcher.New(&fetcher.YtDlp{
		Path:    cfg.Fetch.YtDlpPath,
		Quality: cfg.Fetch.AudioQuality,
		Log:     log,
	}, policy, log)

	mx := mixer.New(mixer.Deps{
		Fetcher:  fetch,
		Renderer: render.New(cfg.Render.FFmpegPath, log),
		Storage:  sp,
		WorkDir:  cfg.WorkDir,
		Log:      log,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Handlers: handlers.Deps{
			Runner:        mx,
			Manifests:     manifest.NewStore(rdb, cfg.ManifestTTL),
			SP:            sp,
			Log:           log,
			ServiceName:   cfg.ServiceName,
			Version:       version,
			PublicBaseURL: cfg.PublicBaseURL,
		},
		Log:                log,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	})

	// A mix runs inside its POST request, so there is no write deadline.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"public_base_url", cfg.PublicBaseURL,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
