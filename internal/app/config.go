package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the dashboard service.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// RedisAddr enables the upstream payload cache. Empty disables it.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	UpstreamBaseURL  string        `envconfig:"UPSTREAM_BASE_URL" required:"true"`
	UpstreamToken    string        `envconfig:"UPSTREAM_TOKEN"`
	UpstreamTimeout  time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	UpstreamCacheTTL time.Duration `envconfig:"UPSTREAM_CACHE_TTL" default:"30s"`

	DueSoonWindowDays  int `envconfig:"DUE_SOON_WINDOW_DAYS" default:"3"`
	PageSize           int `envconfig:"PAGE_SIZE" default:"15"`
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.UpstreamBaseURL) == "" {
		return nil, errors.New("upstream base url must be provided")
	}
	if cfg.DueSoonWindowDays < 0 {
		return nil, errors.New("due soon window must not be negative")
	}
	if cfg.PageSize <= 0 {
		return nil, errors.New("page size must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// CacheEnabled reports whether raw upstream payloads are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c != nil && strings.TrimSpace(c.RedisAddr) != "" && c.UpstreamCacheTTL > 0
}
