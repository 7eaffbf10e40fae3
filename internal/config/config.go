// Package config holds the moltboard configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	infraconfig "github.com/V-SK/moltboard/infrastructure/config"
)

// maxFanOutAuthors is the hard cap on profile lookups per recomputation.
const maxFanOutAuthors = 15

const defaultMaxRetries = 3

// Leaderboard strategies.
const (
	StrategyFanOut      = "fanout"
	StrategyPassthrough = "passthrough"
)

// Config holds all configuration for moltboard.
type Config struct {
	Service     ServiceConfig             `yaml:"service"`
	Upstream    UpstreamConfig            `yaml:"upstream"`
	Leaderboard LeaderboardConfig         `yaml:"leaderboard"`
	Dashboard   DashboardConfig           `yaml:"dashboard"`
	SSE         SSEConfig                 `yaml:"sse"`
	Logging     infraconfig.LoggingConfig `yaml:"logging"`
	CORS        CORSConfig                `yaml:"cors"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"PORT"            yaml:"port"`
	Debug   bool   `env:"MOLTBOARD_DEBUG" yaml:"debug"`
}

// UpstreamConfig describes the Moltbook REST API.
type UpstreamConfig struct {
	BaseURL string `env:"MOLTBOOK_API_URL" yaml:"base_url"`
	APIKey  string `env:"MOLTBOOK_API_KEY" yaml:"api_key"`
	// SiteURL is the public site used to build post links when a post has
	// no url of its own.
	SiteURL string        `env:"MOLTBOOK_SITE_URL" yaml:"site_url"`
	Timeout time.Duration `yaml:"timeout"`

	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
}

// LeaderboardConfig configures the cached leaderboard.
type LeaderboardConfig struct {
	Strategy string        `env:"LEADERBOARD_STRATEGY" yaml:"strategy"`
	TTL      time.Duration `env:"LEADERBOARD_TTL"      yaml:"ttl"`
	// PostWindow is how many hot posts are scanned for authors.
	PostWindow int `yaml:"post_window"`
	// MaxAuthors caps the profile fan-out.
	MaxAuthors        int `yaml:"max_authors"`
	FanOutConcurrency int `yaml:"fanout_concurrency"`
	// FanOutRPS limits profile lookups per second. Zero disables the limit.
	FanOutRPS      float64       `yaml:"fanout_rps"`
	ComputeTimeout time.Duration `yaml:"compute_timeout"`
}

// DashboardConfig configures the terminal dashboard.
type DashboardConfig struct {
	ServerURL       string        `env:"MOLTBOARD_SERVER_URL" yaml:"server_url"`
	RefreshInterval time.Duration `env:"MOLTBOARD_REFRESH"    yaml:"refresh_interval"`
	// AgentsInterval defaults to twice RefreshInterval.
	AgentsInterval time.Duration `yaml:"agents_interval"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	// MaxRetries is a pointer so an explicit 0 (no early retries) is kept.
	MaxRetries     *int          `yaml:"max_retries"`
	PageSize       int           `yaml:"page_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Retries returns MaxRetries, or the default when it is unset.
func (d DashboardConfig) Retries() int {
	if d.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *d.MaxRetries
}

// SSEConfig configures the leaderboard event stream.
type SSEConfig struct {
	Disabled   bool          `env:"SSE_DISABLED" yaml:"disabled"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	MaxClients int           `yaml:"max_clients"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ORIGINS" yaml:"allowed_origins"`
}

// Load loads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults[Config](path, setDefaults)
	if err != nil {
		return nil, err
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "moltboard"
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = "1.0.0"
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 3456
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://www.moltbook.com/api/v1"
	}
	if cfg.Upstream.SiteURL == "" {
		cfg.Upstream.SiteURL = "https://www.moltbook.com"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 15 * time.Second
	}
	if cfg.Upstream.BreakerThreshold == 0 {
		cfg.Upstream.BreakerThreshold = 5
	}
	if cfg.Upstream.BreakerTimeout == 0 {
		cfg.Upstream.BreakerTimeout = 30 * time.Second
	}

	if cfg.Leaderboard.Strategy == "" {
		cfg.Leaderboard.Strategy = StrategyFanOut
	}
	if cfg.Leaderboard.TTL == 0 {
		cfg.Leaderboard.TTL = 2 * time.Minute
	}
	if cfg.Leaderboard.PostWindow == 0 {
		cfg.Leaderboard.PostWindow = 50
	}
	if cfg.Leaderboard.MaxAuthors == 0 {
		cfg.Leaderboard.MaxAuthors = 15
	}
	if cfg.Leaderboard.FanOutConcurrency == 0 {
		cfg.Leaderboard.FanOutConcurrency = cfg.Leaderboard.MaxAuthors
	}
	if cfg.Leaderboard.ComputeTimeout == 0 {
		cfg.Leaderboard.ComputeTimeout = 30 * time.Second
	}

	if cfg.Dashboard.ServerURL == "" {
		cfg.Dashboard.ServerURL = fmt.Sprintf("http://localhost:%d", cfg.Service.Port)
	}
	if cfg.Dashboard.RefreshInterval == 0 {
		cfg.Dashboard.RefreshInterval = 60 * time.Second
	}
	if cfg.Dashboard.AgentsInterval == 0 {
		cfg.Dashboard.AgentsInterval = 2 * cfg.Dashboard.RefreshInterval
	}
	if cfg.Dashboard.RetryDelay == 0 {
		cfg.Dashboard.RetryDelay = 5 * time.Second
	}
	if cfg.Dashboard.MaxRetries == nil {
		retries := defaultMaxRetries
		cfg.Dashboard.MaxRetries = &retries
	}
	if cfg.Dashboard.PageSize == 0 {
		cfg.Dashboard.PageSize = 25
	}
	if cfg.Dashboard.RequestTimeout == 0 {
		cfg.Dashboard.RequestTimeout = 30 * time.Second
	}

	if cfg.SSE.Heartbeat == 0 {
		cfg.SSE.Heartbeat = 15 * time.Second
	}
	if cfg.SSE.MaxClients == 0 {
		cfg.SSE.MaxClients = 500
	}

	cfg.Logging.SetDefaults()

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	return errors.Join(
		infraconfig.ValidatePort("service.port", c.Service.Port),
		infraconfig.ValidateURL("upstream.base_url", c.Upstream.BaseURL),
		infraconfig.ValidateURL("upstream.site_url", c.Upstream.SiteURL),
		infraconfig.ValidateURL("dashboard.server_url", c.Dashboard.ServerURL),
		infraconfig.ValidateOneOf("leaderboard.strategy", c.Leaderboard.Strategy, StrategyFanOut, StrategyPassthrough),
		infraconfig.ValidatePositive("leaderboard.ttl", c.Leaderboard.TTL),
		infraconfig.ValidateRange("leaderboard.max_authors", c.Leaderboard.MaxAuthors, 1, maxFanOutAuthors),
		infraconfig.ValidateMin("leaderboard.post_window", c.Leaderboard.PostWindow, 1),
		infraconfig.ValidateMin("leaderboard.fanout_rps", c.Leaderboard.FanOutRPS, 0),
		infraconfig.ValidatePositive("dashboard.refresh_interval", c.Dashboard.RefreshInterval),
		infraconfig.ValidateMin("dashboard.max_retries", c.Dashboard.Retries(), 0),
		c.Logging.Validate(),
	)
}
