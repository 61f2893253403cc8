// Package config provides configuration management for Fraudkeeper services.
package config

import (
	"time"
)

// ServiceConfig holds configuration for the HTTP rule and transaction API.
type ServiceConfig struct {
	Host                 string
	Port                 int
	RequestTimeout       time.Duration
	MaxPageSize          int
	CacheRefreshInterval time.Duration
	WorkerLimit          int
	LockTimeout          time.Duration
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:                 "0.0.0.0",
		Port:                 8080,
		RequestTimeout:       30 * time.Second,
		MaxPageSize:          200,
		CacheRefreshInterval: 5 * time.Minute,
		WorkerLimit:          8,
		LockTimeout:          5 * time.Second,
	}
}
