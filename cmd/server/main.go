package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/claudiator/server-go/internal/app"
	"github.com/claudiator/server-go/internal/config"
	"github.com/claudiator/server-go/internal/database"
	"github.com/claudiator/server-go/internal/push"
	"github.com/claudiator/server-go/internal/redis"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.LogFormat)
	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Str("dialect", string(db.Dialect)).Msg("database ready")

	deps := app.Deps{Config: cfg, DB: db}

	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		deps.Redis = redisClient
		log.Info().Msg("redis connected")
	}

	if cfg.APNsEnabled() {
		key, err := push.LoadPrivateKey(cfg.APNsKeyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load APNs key")
		}
		tokens := push.NewTokenSource(key, cfg.APNsKeyID, cfg.APNsTeamID, config.APNsTokenTTL)
		deps.Sender = push.NewClient(tokens, cfg.APNsBundleID)
		log.Info().Str("bundleId", cfg.APNsBundleID).Bool("sandbox", cfg.APNsSandbox).Msg("APNs enabled")
	} else {
		log.Warn().Msg("APNs not configured, push notifications disabled")
	}

	application, err := app.New(context.Background(), deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}
	application.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      application.Router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("version", config.Version).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Closing the broker first ends open streams so Shutdown is not held up by them.
	application.Broker.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	application.Close()

	log.Info().Msg("server stopped")
}

func setupLogger(format string) {
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
