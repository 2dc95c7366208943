package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Extraction.MaxContentLength == 0 {
		cfg.Extraction.MaxContentLength = 500_000
	}
	if cfg.Extraction.InvokeTimeout == 0 {
		cfg.Extraction.InvokeTimeout = 60 * time.Second
	}
	if cfg.Extraction.MaxRetries == 0 {
		cfg.Extraction.MaxRetries = 3
	}
	if cfg.Extraction.RetryBaseDelay == 0 {
		cfg.Extraction.RetryBaseDelay = 100 * time.Millisecond
	}
	if cfg.Extraction.Primary == "" && len(cfg.Providers) > 0 {
		cfg.Extraction.Primary = cfg.Providers[0].Name
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = cfg.Extraction.InvokeTimeout
		}
	}

	if cfg.Breaker.CheckInterval == 0 {
		cfg.Breaker.CheckInterval = 5 * time.Second
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = 5 * time.Minute
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	names := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider entry is missing a name")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate provider name: %s", p.Name)
		}
		names[p.Name] = true
	}
	if cfg.Extraction.Primary != "" && len(cfg.Providers) > 0 && !names[cfg.Extraction.Primary] {
		return fmt.Errorf("primary provider %q is not configured", cfg.Extraction.Primary)
	}
	for _, f := range cfg.Extraction.Fallbacks {
		if !names[f] {
			return fmt.Errorf("fallback provider %q is not configured", f)
		}
	}
	if cfg.Cache.Backend == "redis" && cfg.Redis.URL == "" {
		return fmt.Errorf("cache backend is redis but redis.url is empty")
	}
	return nil
}
