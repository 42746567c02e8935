package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
// It is built once at process start and handed to every adapter read-only.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"5"`
	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	CORSOrigins      []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Text   TextConfig   `envPrefix:"TEXT_"`
	Qwen   QwenConfig   `envPrefix:"QWEN_"`
	Jobs   JobsConfig   `envPrefix:"JOBS_"`
	Image  ImageConfig  `envPrefix:"IMAGE_"`
	Video  VideoConfig  `envPrefix:"VIDEO_"`
	Ledger LedgerConfig `envPrefix:"LEDGER_"`
}

// TextConfig points at an OpenAI-compatible chat completions API.
type TextConfig struct {
	APIKey       string        `env:"API_KEY"`
	Model        string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	BaseURL      string        `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
	Organization string        `env:"ORG"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"20s"`
}

// QwenConfig configures the DashScope single-shot image client.
type QwenConfig struct {
	APIKey      string        `env:"API_KEY"`
	Model       string        `env:"MODEL" envDefault:"qwen-image-plus"`
	BaseURL     string        `env:"BASE_URL" envDefault:"https://dashscope-intl.aliyuncs.com/api/v1"`
	DefaultSize string        `env:"DEFAULT_SIZE" envDefault:"1328*1328"`
	Watermark   bool          `env:"WATERMARK" envDefault:"false"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"45s"`
}

// JobsConfig holds the credentials and endpoints of the prediction-style job
// provider shared by the image and video adapters.
type JobsConfig struct {
	APIToken      string        `env:"API_TOKEN"`
	BaseURL       string        `env:"BASE_URL" envDefault:"https://api.replicate.com/v1"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"60"`
	InterJobDelay time.Duration `env:"INTER_JOB_DELAY" envDefault:"2s"`
	ThrottleMode  string        `env:"THROTTLE_MODE" envDefault:"fixed"`
	ThrottleBurst int           `env:"THROTTLE_BURST" envDefault:"1"`
}

// ImageConfig selects the image model version.
type ImageConfig struct {
	ModelVersion string `env:"MODEL_VERSION"`
}

// VideoConfig selects the video model version and its longer poll budget.
type VideoConfig struct {
	ModelVersion string        `env:"MODEL_VERSION"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"120"`
}

// LedgerConfig selects the optional job ledger driver.
type LedgerConfig struct {
	Driver string        `env:"DRIVER" envDefault:"none"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// Ledger drivers accepted by LedgerConfig.Driver.
const (
	LedgerNone     = "none"
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// LoadConfig loads .env files when present, then parses the environment and
// applies validation.
func LoadConfig() (*Config, error) {
	// Missing files are fine.
	_ = godotenv.Load(".env", ".env.local")
	return ParseConfig()
}

// ParseConfig parses the process environment only.
func ParseConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Ledger.Driver = strings.ToLower(strings.TrimSpace(cfg.Ledger.Driver))
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = LedgerNone
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	switch cfg.Ledger.Driver {
	case LedgerNone, LedgerMemory:
	case LedgerPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres ledger")
		}
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
	if cfg.Jobs.MaxAttempts < 0 || cfg.Video.MaxAttempts < 0 {
		return nil, fmt.Errorf("poll attempt budgets must not be negative")
	}
	budget := cfg.RequestBudget()
	if sleeps := PollSleeps(cfg.Jobs.PollInterval, cfg.Jobs.MaxAttempts); budget > 0 && sleeps >= budget {
		return nil, fmt.Errorf("JOBS poll budget %s does not fit in HTTP_WRITE_TIMEOUT %s minus %s", sleeps, cfg.HTTPWriteTimeout, writeSlack)
	}
	if sleeps := PollSleeps(cfg.Video.PollInterval, cfg.Video.MaxAttempts); budget > 0 && sleeps >= budget {
		return nil, fmt.Errorf("VIDEO poll budget %s does not fit in HTTP_WRITE_TIMEOUT %s minus %s", sleeps, cfg.HTTPWriteTimeout, writeSlack)
	}
	return cfg, nil
}

// writeSlack is kept between the request deadline and the write deadline so
// the timeout response still reaches the client.
const writeSlack = 5 * time.Second

// RequestBudget is the deadline given to a generation request. It ends
// writeSlack before the server write timeout; zero means no deadline.
func (c *Config) RequestBudget() time.Duration {
	if c.HTTPWriteTimeout <= 0 {
		return 0
	}
	if c.HTTPWriteTimeout <= writeSlack {
		return c.HTTPWriteTimeout / 2
	}
	return c.HTTPWriteTimeout - writeSlack
}

// PollSleeps is the total time a poller spends sleeping between attempts.
func PollSleeps(interval time.Duration, attempts int) time.Duration {
	if attempts <= 1 || interval <= 0 {
		return 0
	}
	return interval * time.Duration(attempts-1)
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
