// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (Redis, Cognito) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Missing or malformed identity-provider settings are a distinct, fatal error
class: they abort startup with an operator-facing message instead of ever
surfacing to an end user as a credential failure.
*/
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sentra-id/sentra/internal/platform/apperr"
)

// # Configuration Schema

// Config holds all runtime configuration for the Sentra gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Durable session store (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Audit trail (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// AuditRetention is how long audit events are kept before the periodic
	// prune removes them. Defaults to 90 days.
	AuditRetention time.Duration `env:"AUDIT_RETENTION" envDefault:"2160h"`

	// Identity provider (AWS Cognito user pool client)
	AWSRegion           string `env:"AWS_REGION"            envDefault:"us-east-1"`
	CognitoClientID     string `env:"COGNITO_CLIENT_ID,required"`
	CognitoClientSecret string `env:"COGNITO_CLIENT_SECRET"`
	// CognitoEndpoint overrides the provider endpoint, for local emulators.
	CognitoEndpoint string `env:"COGNITO_ENDPOINT"`

	// EntryPath is where the route guard bounces unauthenticated requests.
	EntryPath string `env:"ENTRY_PATH" envDefault:"/"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, apperr.Misconfigured("The environment configuration is invalid", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the gateway is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the gateway is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the comma-separated EXTRA_ORIGINS as a slice.
func (c *Config) AllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
