// ABOUTME: Application configuration loaded from file and environment
// ABOUTME: Viper-backed settings for server, database, and Google sync
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// Feature flag: when false the scheduler stays idle.
	SyncEnabled         bool `mapstructure:"sync_enabled"`
	SyncIntervalMinutes int  `mapstructure:"sync_interval_minutes"`
	// Number of users reconciled concurrently per scheduled run.
	SyncWorkers int `mapstructure:"sync_workers"`
	// Upper bound for any single provider call.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

type Config struct {
	Port         int    `mapstructure:"port"`
	DatabasePath string `mapstructure:"database_path"`
	LogLevel     string `mapstructure:"log_level"`
	// Secret for validating bearer tokens on the HTTP boundary.
	JWTSecret string `mapstructure:"jwt_secret"`

	Google GoogleConfig `mapstructure:"google"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":                           8080,
		"database_path":                  filepath.Join(xdg.DataHome, "nuconnect", "nuconnect.db"),
		"log_level":                      "INFO",
		"jwt_secret":                     "",
		"google.client_id":               "",
		"google.client_secret":           "",
		"google.sync_enabled":            false,
		"google.sync_interval_minutes":   15,
		"google.sync_workers":            4,
		"google.request_timeout_seconds": 30,
	}
}

// LoadConfig reads configuration from an optional config file and the
// environment. Environment variables use the NUCONNECT_ prefix, e.g.
// NUCONNECT_GOOGLE_CLIENT_ID.
func LoadConfig(configFile ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("NUCONNECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(configFile) > 0 && configFile[0] != "" {
		v.SetConfigFile(configFile[0])
	}

	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything has a default or env var.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Google.SyncIntervalMinutes < 1 {
		return nil, fmt.Errorf("google.sync_interval_minutes must be at least 1, got %d", cfg.Google.SyncIntervalMinutes)
	}
	if cfg.Google.SyncWorkers < 1 {
		cfg.Google.SyncWorkers = 1
	}

	return &cfg, nil
}

// SyncInterval returns the scheduler tick as a duration.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Google.SyncIntervalMinutes) * time.Minute
}

// RequestTimeout returns the per-call provider timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Google.RequestTimeoutSeconds) * time.Second
}
