package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/claudiator/server-go/internal/config"
	"github.com/claudiator/server-go/internal/database"
	"github.com/claudiator/server-go/internal/handler"
	"github.com/claudiator/server-go/internal/jobs"
	"github.com/claudiator/server-go/internal/middleware"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/push"
	redisclient "github.com/claudiator/server-go/internal/redis"
	"github.com/claudiator/server-go/internal/repository"
	"github.com/claudiator/server-go/internal/service"
	"github.com/claudiator/server-go/internal/sse"
)

// Deps are the externally owned resources the server is built on.
// Redis and Sender are optional.
type Deps struct {
	Config *config.Config
	DB     *database.DB
	Redis  *redisclient.Client
	Sender push.Sender
}

// App owns the server's long-lived state: version counters, the limiter
// and lockout maps, the cooldown map, the stream broker and the background
// workers.
type App struct {
	Router     http.Handler
	Versions   *service.Versions
	Broker     *sse.Broker
	Retention  *jobs.RetentionJob
	Dispatcher *push.Dispatcher
}

func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Config
	db := deps.DB

	deviceRepo := repository.NewDeviceRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	eventRepo := repository.NewEventRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	pushTokenRepo := repository.NewPushTokenRepository(db.DB)
	apiKeyRepo := repository.NewAPIKeyRepository(db.DB)
	metadataRepo := repository.NewMetadataRepository(db.DB)

	versions := service.NewVersions(metadataRepo)
	if err := versions.Load(ctx); err != nil {
		return nil, fmt.Errorf("load versions: %w", err)
	}

	broker := sse.NewBroker(deps.Redis)
	versions.AddListener(broker)

	var (
		dispatcher *push.Dispatcher
		pusher     service.Pusher
	)
	if deps.Sender != nil {
		dispatcher = push.NewDispatcher(deps.Sender, pushTokenRepo, config.APNsFanoutTimeout)
		pusher = dispatcher
	}

	retention := jobs.NewRetentionJob(
		eventRepo, notificationRepo, sessionRepo, deviceRepo,
		jobs.RetentionPolicy{
			Events:        cfg.EventRetention(),
			Notifications: config.NotificationRetention,
			Sessions:      cfg.SessionRetention(),
			Devices:       cfg.DeviceRetention(),
		},
		config.CleanupJobInterval,
		config.CleanupTimeout,
	)

	notificationService := service.NewNotificationService(
		notificationRepo, sessionRepo, versions, service.NewCooldown(config.NotificationCooldown), pusher,
	)
	eventService := service.NewEventService(
		db, deviceRepo, sessionRepo, eventRepo, metadataRepo, notificationService, versions, retention,
	)
	queryService := service.NewQueryService(deviceRepo, sessionRepo, eventRepo)
	pushService := service.NewPushRegistrationService(pushTokenRepo, cfg.APNsSandbox)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo)

	localLimiter := middleware.NewWindowLimiter(config.KeyRateLimitWindow, config.RateLimiterMaxEntries)
	var keyLimiter middleware.KeyLimiter = localLimiter
	if deps.Redis != nil {
		keyLimiter = middleware.NewRedisKeyLimiter(deps.Redis.Client, config.KeyRateLimitWindow, localLimiter)
	}
	authorizer := middleware.NewAuthorizer(
		cfg.APIKey,
		apiKeyService,
		middleware.NewFailureTracker(config.AuthFailureMax, config.AuthFailureWindow, config.RateLimiterMaxEntries),
		keyLimiter,
		cfg.KeyRateLimit,
	)
	gates := handler.Gates{
		Read:  authorizer.Require(model.ScopeRead),
		Write: authorizer.Require(model.ScopeWrite),
		Admin: authorizer.RequireAdmin,
	}

	bodyLimit := middleware.NewBodyLimitMiddleware(config.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	timeout := chimiddleware.Timeout(config.ServerRequestTimeout)

	r.Route("/api/v1", func(r chi.Router) {
		// The stream outlives the request timeout.
		handler.NewStreamHandler(broker, versions, config.StreamHeartbeatInterval).Register(r, gates)

		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Use(bodyLimit.Handler)

			handler.NewPingHandler(versions, config.Version).Register(r, gates)
			handler.NewEventsHandler(eventService).Register(r, gates)
			handler.NewPushHandler(pushService).Register(r, gates)
			handler.NewDevicesHandler(queryService).Register(r, gates)
			handler.NewSessionsHandler(queryService).Register(r, gates)
			handler.NewNotificationsHandler(notificationService).Register(r, gates)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(timeout)
		r.Use(bodyLimit.Handler)
		handler.NewAdminHandler(apiKeyService).Register(r, gates)
	})

	log.Info().
		Bool("push", dispatcher != nil).
		Bool("redis", deps.Redis != nil).
		Msg("application wired")

	return &App{
		Router:     r,
		Versions:   versions,
		Broker:     broker,
		Retention:  retention,
		Dispatcher: dispatcher,
	}, nil
}

// Start launches the background retention ticker.
func (a *App) Start() {
	a.Retention.Start()
}

// Close stops background work and waits for in-flight push fan-outs.
func (a *App) Close() {
	a.Retention.Stop()
	a.Broker.Close()
	if a.Dispatcher != nil {
		a.Dispatcher.Wait()
	}
}
