package infra

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string        `env:"APP_ENV" envDefault:"development"`
	Port               string        `env:"PORT" envDefault:"8080"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	JWTSecret          string        `env:"JWT_SECRET"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"ai-studio"`
	JWTTTL             time.Duration `env:"JWT_TTL" envDefault:"24h"`
	GeoIPDBPath        string        `env:"GEOIP_DB_PATH"`
	DefaultLocale      string        `env:"DEFAULT_LOCALE" envDefault:"en"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitPerMin    int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	MigrateOnStart     bool          `env:"MIGRATE_ON_START" envDefault:"false"`

	HTTP    HTTPConfig    `envPrefix:"HTTP_"`
	Google  GoogleConfig  `envPrefix:"GOOGLE_"`
	Gemini  GeminiConfig  `envPrefix:"GEMINI_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	S3      S3Config      `envPrefix:"S3_"`
	Billing BillingConfig
	Worker  WorkerConfig
}

type HTTPConfig struct {
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

type GoogleConfig struct {
	ClientID string `env:"CLIENT_ID"`
	Issuer   string `env:"ISSUER" envDefault:"https://accounts.google.com"`
}

// GeminiConfig configures the Veo long-running video API.
type GeminiConfig struct {
	APIKey       string        `env:"API_KEY"`
	BaseURL      string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"120s"`
}

type RedisConfig struct {
	URL          string `env:"URL" envDefault:"redis://localhost:6379/0"`
	QueueKey     string `env:"QUEUE_KEY" envDefault:"video_jobs:queue"`
	EventsPrefix string `env:"EVENTS_PREFIX" envDefault:"video_jobs:events:"`
}

type StorageConfig struct {
	Driver  string `env:"DRIVER" envDefault:"local"`
	Path    string `env:"PATH" envDefault:"./storage"`
	BaseURL string `env:"BASE_URL"`
}

type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
	UsePathStyle    bool   `env:"USE_PATH_STYLE" envDefault:"false"`
}

type BillingConfig struct {
	VideoTokenCost       int  `env:"VIDEO_TOKEN_COST" envDefault:"50"`
	MaxActiveJobsPerUser int  `env:"MAX_ACTIVE_JOBS_PER_USER" envDefault:"3"`
	RefundOnFailure      bool `env:"REFUND_ON_FAILURE" envDefault:"false"`
}

// WorkerConfig controls the job worker, lease reaper and queue sweeper.
type WorkerConfig struct {
	Concurrency       int           `env:"WORKER_CONCURRENCY" envDefault:"2"`
	PopTimeout        time.Duration `env:"WORKER_POP_TIMEOUT" envDefault:"5s"`
	Lease             time.Duration `env:"LEASE_DURATION" envDefault:"2m"`
	Heartbeat         time.Duration `env:"LEASE_HEARTBEAT" envDefault:"30s"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"15m"`
	MockDelayMin      time.Duration `env:"MOCK_DELAY_MIN" envDefault:"8s"`
	MockDelayMax      time.Duration `env:"MOCK_DELAY_MAX" envDefault:"15s"`
	MockArtifactURL   string        `env:"MOCK_ARTIFACT_URL" envDefault:"https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerBlazes.mp4"`
	ReaperInterval    time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	StaleQueuedAfter  time.Duration `env:"STALE_QUEUED_AFTER" envDefault:"2m"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.Storage.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Storage.BaseURL), "/")
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = fmt.Sprintf("http://localhost:%s/static", cfg.Port)
	}
	if _, err := url.Parse(cfg.Storage.BaseURL); err != nil {
		return nil, fmt.Errorf("STORAGE_BASE_URL: %w", err)
	}

	cfg.sanitize()
	return cfg, nil
}

// ValidateAPI checks settings only the HTTP API needs.
func (c *Config) ValidateAPI() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// ValidateStorage checks the selected storage driver is fully configured.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Driver {
	case "local":
		return nil
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
		return nil
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
}

func (c *Config) sanitize() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Billing.VideoTokenCost < 0 {
		c.Billing.VideoTokenCost = 0
	}
	if c.Worker.Concurrency < 1 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.MockDelayMax < c.Worker.MockDelayMin {
		c.Worker.MockDelayMax = c.Worker.MockDelayMin
	}
	if c.Worker.Heartbeat <= 0 || c.Worker.Heartbeat >= c.Worker.Lease {
		c.Worker.Heartbeat = c.Worker.Lease / 3
	}
	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
}
