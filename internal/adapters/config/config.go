package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/DevDizzle/profit-scout/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	AI            AIConfig
	Sources       SourcesConfig
	Chat          ChatConfig
	Tasks         TaskConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"profitscout"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"0.1.0"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" default:"profitscout"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AIConfig struct {
	GeminiKey       string        `envconfig:"GEMINI_API_KEY"`
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"gemini"`
	GeminiModel     string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Temperature     float64       `envconfig:"AI_TEMPERATURE" default:"0.1"`
	MaxOutputTokens int           `envconfig:"AI_MAX_OUTPUT_TOKENS" default:"4096"`
	Timeout         time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	ReqPerMinute    int           `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
}

// SourcesConfig points at the two stateless analysis data sources
type SourcesConfig struct {
	FundamentalsURL string        `envconfig:"FUNDAMENTALS_URL" required:"true"`
	FilingsURL      string        `envconfig:"FILINGS_URL" required:"true"`
	Timeout         time.Duration `envconfig:"SOURCE_TIMEOUT" default:"30s"`
	RetryAttempts   int           `envconfig:"SOURCE_RETRY_ATTEMPTS" default:"3"`
	RetryBaseDelay  time.Duration `envconfig:"SOURCE_RETRY_BASE_DELAY" default:"500ms"`
}

type ChatConfig struct {
	MaxMessageLen   int           `envconfig:"CHAT_MAX_MESSAGE_LEN" default:"500"`
	MaxQueryLen     int           `envconfig:"CHAT_MAX_QUERY_LEN" default:"80"`
	RateLimitCount  int           `envconfig:"CHAT_RATE_LIMIT_COUNT" default:"10"`
	RateLimitWindow time.Duration `envconfig:"CHAT_RATE_LIMIT_WINDOW" default:"1m"`
	SessionTTL      time.Duration `envconfig:"CHAT_SESSION_TTL" default:"30m"`
}

// TaskConfig tunes the analysis task lifecycle and the streaming relay
type TaskConfig struct {
	MaxActiveTasks    int           `envconfig:"TASK_MAX_ACTIVE" default:"256"`
	StageTimeout      time.Duration `envconfig:"TASK_STAGE_TIMEOUT" default:"90s"`
	SynthesisTimeout  time.Duration `envconfig:"TASK_SYNTHESIS_TIMEOUT" default:"120s"`
	Retention         time.Duration `envconfig:"TASK_RETENTION" default:"10m"`
	DeleteOnDelivery  bool          `envconfig:"TASK_DELETE_ON_DELIVERY" default:"true"`
	StreamMaxWait     time.Duration `envconfig:"STREAM_MAX_WAIT" default:"6m"`
	KeepAliveInterval time.Duration `envconfig:"STREAM_KEEPALIVE_INTERVAL" default:"15s"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for the background maintenance workers
type WorkerConfig struct {
	JanitorInterval      time.Duration `envconfig:"WORKER_JANITOR_INTERVAL" default:"1m"`
	JanitorEnabled       bool          `envconfig:"WORKER_JANITOR_ENABLED" default:"true"`
	LimiterSweepInterval time.Duration `envconfig:"WORKER_LIMITER_SWEEP_INTERVAL" default:"5m"`
	LimiterSweepEnabled  bool          `envconfig:"WORKER_LIMITER_SWEEP_ENABLED" default:"true"`
	LimiterMaxIdle       time.Duration `envconfig:"WORKER_LIMITER_MAX_IDLE" default:"15m"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
