package config

import (
	"time"

	redisclient "github.com/joblens/extractor/internal/infra/redis"
	"github.com/joblens/extractor/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Extraction ExtractionConfig   `yaml:"extraction"`
	Providers  []ProviderConfig   `yaml:"providers"`
	Breaker    BreakerConfig      `yaml:"breaker"`
	Cache      CacheConfig        `yaml:"cache"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ExtractionConfig holds pipeline settings.
type ExtractionConfig struct {
	Primary          string        `yaml:"primary"`
	Fallbacks        []string      `yaml:"fallbacks"`
	MaxContentLength int           `yaml:"max_content_length"`
	InvokeTimeout    time.Duration `yaml:"invoke_timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
}

// ProviderConfig holds settings for one AI inference provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Kind        string        `yaml:"kind"` // openai, groq, ollama
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	TextModel   string        `yaml:"text_model"`
	VisionModel string        `yaml:"vision_model"`
	Timeout     time.Duration `yaml:"timeout"`

	// Circuit breaker overrides for this provider, 0 = registry default
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
}

// BreakerConfig holds circuit breaker recovery monitor settings.
type BreakerConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	CheckTimeout  time.Duration `yaml:"check_timeout"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory, redis
	TTL           time.Duration `yaml:"ttl"`     // 0 = no expiry
	SweepInterval time.Duration `yaml:"sweep_interval"`
}
