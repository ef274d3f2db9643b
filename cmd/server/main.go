package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/ai"
	"github.com/DenisLeme/pitchlab/internal/api"
	"github.com/DenisLeme/pitchlab/internal/config"
	"github.com/DenisLeme/pitchlab/internal/handlers"
	"github.com/DenisLeme/pitchlab/internal/hub"
	"github.com/DenisLeme/pitchlab/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx := context.Background()

	// Initialize the data store: PostgreSQL when configured, SQLite otherwise
	// (an empty SQLITE_PATH means in-memory, which vanishes on restart)
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pg
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		lite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = lite
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}
	defer dataStore.Close()

	// Initialize Redis (optional, backs the digest rate limiter)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Event coordinator, constructed once and shared by reference
	eventHub := hub.New(logger)

	// Digest pipeline
	digestClient := ai.NewClient(ai.Config{
		APIKey:  cfg.GroqAPIKey,
		BaseURL: cfg.GroqBaseURL,
		Model:   cfg.GroqModel,
	}, logger)
	if cfg.GroqAPIKey == "" {
		logger.Warn().Msg("GROQ_API_KEY not set, digest client runs in mock mode")
	}
	digest := ai.NewService(dataStore, digestClient, eventHub, logger)

	// Create router
	h := handlers.NewHandler(dataStore, redisStore, eventHub, digest, logger)
	var redisClient *redis.Client
	if redisStore != nil {
		redisClient = redisStore.Client()
	}
	router := api.NewRouter(cfg, logger, h, redisClient)

	// Create server. WriteTimeout must stay generous enough for long-lived
	// SSE subscriptions.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting PitchLab server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Disconnect subscribers so open SSE streams end and Shutdown can drain
	eventHub.CloseAll()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
