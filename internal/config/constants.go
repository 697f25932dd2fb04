package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 4
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 30 * time.Minute
	DBBusyTimeoutMS   = 5000
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Retention
const (
	CleanupJobInterval    = 5 * time.Minute
	NotificationRetention = 24 * time.Hour
	CleanupTimeout        = 30 * time.Second
)

// Authorization
const (
	MinMasterKeyLength    = 16
	KeyRateLimitWindow    = 60 * time.Second
	AuthFailureMax        = 10
	AuthFailureWindow     = 5 * time.Minute
	RateLimiterMaxEntries = 10000
)

// Notifications
const (
	NotificationCooldown = 30 * time.Second
	MaxTitleBytes        = 200
	MaxCollapseIDBytes   = 64
)

// Push provider
const (
	APNsTokenTTL       = 50 * time.Minute
	APNsRequestTimeout = 10 * time.Second
	APNsFanoutTimeout  = 60 * time.Second
)

// Request body limit for JSON endpoints
const MaxBodyBytes = 1 << 20

// Live feed
const StreamHeartbeatInterval = 25 * time.Second
