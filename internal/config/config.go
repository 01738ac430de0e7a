package config

import (
	"errors"
	"fmt"
	"time"
)

// Default service configuration values.
const (
	defaultServiceName    = "extraction-pipeline"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8090
)

// Default pipeline tuning values.
const (
	defaultWorkers             = 4
	defaultCollectWindow       = 7 * 24 * time.Hour
	defaultTranscribeTimeout   = 10 * time.Minute
	defaultLLMMaxAttempts      = 3
	defaultLLMMaxTokens        = 1024
	defaultLLMRequestsPerMin   = 30
	defaultSourceRequestsPerMin = 60
	defaultOutcomeTolerancePct = 0.05
	defaultOutcomeInterval     = time.Hour
)

// Config holds the full application configuration.
type Config struct {
	Service      ServiceConfig    `yaml:"service"`
	Database     DatabaseConfig   `yaml:"database"`
	Redis        RedisConfig      `yaml:"redis"`
	Logging      LoggingConfig    `yaml:"logging"`
	Sources      SourcesConfig    `yaml:"sources"`
	Transcriber  TranscriberConfig `yaml:"transcriber"`
	LLM          LLMConfig        `yaml:"llm"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Outcome      OutcomeConfig    `yaml:"outcome"`
	Schedules    []ScheduleConfig `yaml:"schedules"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"PIPELINE_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"     yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the optional Redis connection used for job events and
// the processed-content idempotency set. Leaving Addr empty disables both.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"     yaml:"addr"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// SourcesConfig holds the external content source settings.
type SourcesConfig struct {
	YouTube SourceConfig `yaml:"youtube"`
	Twitter SourceConfig `yaml:"twitter"`
}

// SourceConfig holds one content source's endpoint and rate limit.
type SourceConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	RequestsPerMin int    `yaml:"requests_per_min"`
}

// TranscriberConfig holds the speech-to-text service settings.
type TranscriberConfig struct {
	BaseURL string        `env:"TRANSCRIBER_URL" yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig holds the extraction model settings.
type LLMConfig struct {
	APIKey         string `env:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	MaxAttempts    int    `yaml:"max_attempts"`
	RequestsPerMin int    `yaml:"requests_per_min"`
}

// OrchestratorConfig holds job fan-out settings.
type OrchestratorConfig struct {
	Workers       int           `yaml:"workers"`
	CollectWindow time.Duration `yaml:"collect_window"`
}

// OutcomeConfig holds validator sweep settings.
type OutcomeConfig struct {
	MarketBaseURL string        `env:"MARKET_DATA_URL" yaml:"market_base_url"`
	TolerancePct  float64       `yaml:"tolerance_pct"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ScheduleConfig describes one recurring bulk extraction run.
type ScheduleConfig struct {
	Name          string   `yaml:"name"`
	Cron          string   `yaml:"cron"`
	Description   string   `yaml:"description"`
	ForecasterIDs []string `yaml:"forecaster_ids"`
	Sources       []string `yaml:"sources"`
}

// Load reads the config file at path, applies defaults and env overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port %d out of range", c.Service.Port)
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Database == "" {
		return errors.New("database.database is required")
	}
	if c.Outcome.TolerancePct < 0 || c.Outcome.TolerancePct >= 1 {
		return fmt.Errorf("outcome.tolerance_pct %v must be in [0,1)", c.Outcome.TolerancePct)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = defaultServiceName
	}
	if c.Service.Version == "" {
		c.Service.Version = defaultServiceVersion
	}
	if c.Service.Port == 0 {
		c.Service.Port = defaultServicePort
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Sources.YouTube.RequestsPerMin == 0 {
		c.Sources.YouTube.RequestsPerMin = defaultSourceRequestsPerMin
	}
	if c.Sources.Twitter.RequestsPerMin == 0 {
		c.Sources.Twitter.RequestsPerMin = defaultSourceRequestsPerMin
	}
	if c.Transcriber.Timeout == 0 {
		c.Transcriber.Timeout = defaultTranscribeTimeout
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = defaultLLMMaxAttempts
	}
	if c.LLM.RequestsPerMin == 0 {
		c.LLM.RequestsPerMin = defaultLLMRequestsPerMin
	}
	if c.Orchestrator.Workers == 0 {
		c.Orchestrator.Workers = defaultWorkers
	}
	if c.Orchestrator.CollectWindow == 0 {
		c.Orchestrator.CollectWindow = defaultCollectWindow
	}
	if c.Outcome.TolerancePct == 0 {
		c.Outcome.TolerancePct = defaultOutcomeTolerancePct
	}
	if c.Outcome.SweepInterval == 0 {
		c.Outcome.SweepInterval = defaultOutcomeInterval
	}
}
