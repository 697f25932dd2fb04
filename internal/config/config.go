package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

// EnvPrefix is prepended to every variable name read by Load.
const EnvPrefix = "CLAUDIATOR_"

// Version is reported by the ping endpoint. Overridden at build time with
// -ldflags "-X github.com/claudiator/server-go/internal/config.Version=...".
var Version = "dev"

type Config struct {
	APIKey    string `env:"API_KEY,required"`
	Bind      string `env:"BIND" envDefault:"0.0.0.0"`
	Port      int    `env:"PORT" envDefault:"3000"`
	DBPath    string `env:"DB_PATH" envDefault:"claudiator.db"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	RedisURL  string `env:"REDIS_URL"`

	APNsKeyPath  string `env:"APNS_KEY_PATH"`
	APNsKeyID    string `env:"APNS_KEY_ID"`
	APNsTeamID   string `env:"APNS_TEAM_ID"`
	APNsBundleID string `env:"APNS_BUNDLE_ID"`
	APNsSandbox  bool   `env:"APNS_SANDBOX" envDefault:"false"`

	RetentionEventsDays   int `env:"RETENTION_EVENTS_DAYS" envDefault:"7"`
	RetentionSessionsDays int `env:"RETENTION_SESSIONS_DAYS" envDefault:"7"`
	RetentionDevicesDays  int `env:"RETENTION_DEVICES_DAYS" envDefault:"30"`

	KeyRateLimit int `env:"KEY_RATE_LIMIT" envDefault:"1000"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// APNsEnabled reports whether all four push credentials are present.
func (c *Config) APNsEnabled() bool {
	return c.APNsKeyPath != "" && c.APNsKeyID != "" && c.APNsTeamID != "" && c.APNsBundleID != ""
}

func (c *Config) EventRetention() time.Duration {
	return days(c.RetentionEventsDays)
}

func (c *Config) SessionRetention() time.Duration {
	return days(c.RetentionSessionsDays)
}

func (c *Config) DeviceRetention() time.Duration {
	return days(c.RetentionDevicesDays)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%sAPI_KEY must not be empty", EnvPrefix)
	}
	if len(c.APIKey) < MinMasterKeyLength {
		log.Warn().Int("length", len(c.APIKey)).Msg("master API key is short: consider at least 32 random characters")
	}

	if c.RetentionEventsDays <= 0 || c.RetentionSessionsDays <= 0 || c.RetentionDevicesDays <= 0 {
		return fmt.Errorf("retention periods must be positive")
	}
	if c.KeyRateLimit <= 0 {
		return fmt.Errorf("%sKEY_RATE_LIMIT must be positive", EnvPrefix)
	}

	set := 0
	for _, v := range []string{c.APNsKeyPath, c.APNsKeyID, c.APNsTeamID, c.APNsBundleID} {
		if v != "" {
			set++
		}
	}
	if set > 0 && set < 4 {
		return fmt.Errorf("APNs is partially configured: set %sAPNS_KEY_PATH, _KEY_ID, _TEAM_ID and _BUNDLE_ID together", EnvPrefix)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%sLOG_FORMAT must be json or console, got %q", EnvPrefix, c.LogFormat)
	}

	return nil
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
