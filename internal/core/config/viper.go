package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultServiceConfig
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_page_size", 200)
	v.SetDefault("server.cache_refresh_interval", "5m")
	v.SetDefault("server.worker_limit", 8)
	v.SetDefault("server.lock_timeout", "5s")

	// Bind environment variables with FK_ prefix
	v.SetEnvPrefix("FK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Database credentials stay environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Host:                 v.GetString("server.host"),
		Port:                 v.GetInt("server.port"),
		RequestTimeout:       v.GetDuration("server.request_timeout"),
		MaxPageSize:          v.GetInt("server.max_page_size"),
		CacheRefreshInterval: v.GetDuration("server.cache_refresh_interval"),
		WorkerLimit:          v.GetInt("server.worker_limit"),
		LockTimeout:          v.GetDuration("server.lock_timeout"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive values for timeouts, page
// size, and worker limit.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxPageSize <= 0 {
		return fmt.Errorf("max_page_size must be positive, got %d", cfg.MaxPageSize)
	}
	if cfg.CacheRefreshInterval <= 0 {
		return fmt.Errorf("cache_refresh_interval must be positive, got %v", cfg.CacheRefreshInterval)
	}
	if cfg.WorkerLimit <= 0 {
		return fmt.Errorf("worker_limit must be positive, got %d", cfg.WorkerLimit)
	}
	if cfg.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive, got %v", cfg.LockTimeout)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only credentials.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("db_url") || v.IsSet("server.db_url") {
		return fmt.Errorf("database URLs not allowed in config files (use the --db-url flag or FK_DB_URL environment variable)")
	}
	return nil
}
