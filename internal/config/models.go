package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Retry RetryConfig `mapstructure:"retry"`
	Cache CacheConfig `mapstructure:"cache"`
	Log   LogConfig   `mapstructure:"log"`
}

// Validate ensures required fields are present and values are in range.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "https://") && !strings.HasPrefix(c.API.BaseURL, "http://") {
		return fmt.Errorf("api.base_url must be an http(s) URL (got %q)", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.API.Parallelism < 1 {
		return errors.New("api.parallelism must be at least 1")
	}
	if c.Retry.MaxRetries < 1 {
		return errors.New("retry.max_retries must be at least 1")
	}
	if c.Retry.InitialDelay < 0 {
		return errors.New("retry.initial_delay must not be negative")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	if c.Cache.Namespace == "" {
		return errors.New("cache.namespace is required")
	}
	return nil
}

// APIConfig describes the remote REST API and the HTTP transport.
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Parallelism int           `mapstructure:"parallelism"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// RetryConfig tunes the retry policy.
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// CacheConfig describes the TTL cache and its persistent store.
type CacheConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	Namespace string        `mapstructure:"namespace"`
	Socket    string        `mapstructure:"socket"`
	DBPath    string        `mapstructure:"db_path"`
	Bucket    string        `mapstructure:"bucket"`
}

// LogConfig contains logger preferences.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}
