// Package config loads application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envFile   = ".env"
	envPrefix = "GHPANEL"
)

// Flags registers the command line flags understood by NewConfig.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("api.base_url", "", "REST API base URL")
	fs.Duration("api.timeout", 0, "per-request timeout")
	fs.String("cache.socket", "", "cache daemon socket path")
	fs.String("cache.db_path", "", "bbolt database path (cache daemon)")
	fs.String("log.path", "", "log file path")
	fs.String("log.level", "", "log level (debug, info, warn, error)")
	return fs
}

// NewConfig loads configuration from defaults, an optional .env file, the
// environment (GHPANEL_API_TOKEN, GHPANEL_CACHE_TTL, ...) and flags, in
// increasing priority. flags may be nil.
func NewConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	if flags != nil {
		// Only flags the user actually set override lower layers.
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.github.com")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.parallelism", 4)
	v.SetDefault("api.user_agent", "ghpanel/0.1.0")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay", time.Second)

	v.SetDefault("cache.ttl", 300*time.Second)
	v.SetDefault("cache.namespace", "ghpanel_cache_")
	v.SetDefault("cache.socket", filepath.Join(cacheDir(), "cache.sock"))
	v.SetDefault("cache.db_path", filepath.Join(cacheDir(), "cache.bbolt"))
	v.SetDefault("cache.bucket", "ghpanel")

	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"api.base_url",
		"api.token",
		"api.timeout",
		"api.parallelism",
		"api.user_agent",
		"retry.max_retries",
		"retry.initial_delay",
		"cache.ttl",
		"cache.namespace",
		"cache.socket",
		"cache.db_path",
		"cache.bucket",
		"log.path",
		"log.level",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "ghpanel")
}
