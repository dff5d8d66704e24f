// Package config provides configuration management for userhub.
//
// Configuration is loaded exactly once at process start and treated as
// immutable afterwards: the signing and gateway secrets are passed by value
// into the constructors that need them, never read from ambient state per
// request.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/nexa-sys/userhub/pkg/errors"
)

const (
	// MinSecretLength is the minimum accepted length for the JWT signing
	// secret. Anything shorter is a fatal startup error.
	MinSecretLength = 32

	defaultIssuer      = "userhub"
	defaultAudience    = "userhub-clients"
	defaultExpiryHours = 24
)

// Config holds the full service configuration
type Config struct {
	// HTTP server
	HTTPPort int    `mapstructure:"http_port" yaml:"http_port"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// Environment name; "test" disables the gateway trust gate
	Environment string `mapstructure:"environment" yaml:"environment"`

	// Bearer token configuration
	JWTSecret      string `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required,min=32"`
	JWTIssuer      string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience    string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTExpiryHours int    `mapstructure:"jwt_expiry_hours" yaml:"jwt_expiry_hours" validate:"min=1"`

	// Shared secret expected from the upstream gateway; optional, but
	// running without it weakens the trust boundary
	GatewaySecret string `mapstructure:"gateway_secret" yaml:"gateway_secret"`

	// Storage
	DatabasePath string `mapstructure:"database_path" yaml:"database_path" validate:"required"`
}

// Default returns a configuration with service defaults applied
func Default() *Config {
	return &Config{
		HTTPPort:       8080,
		LogLevel:       "info",
		Environment:    "production",
		JWTIssuer:      defaultIssuer,
		JWTAudience:    defaultAudience,
		JWTExpiryHours: defaultExpiryHours,
		DatabasePath:   "./data/userhub.db",
	}
}

// Load reads configuration from an optional YAML file and USERHUB_*
// environment variables, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	cfg := Default()
	v.SetDefault("http_port", cfg.HTTPPort)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("environment", cfg.Environment)
	v.SetDefault("jwt_issuer", cfg.JWTIssuer)
	v.SetDefault("jwt_audience", cfg.JWTAudience)
	v.SetDefault("jwt_expiry_hours", cfg.JWTExpiryHours)
	v.SetDefault("database_path", cfg.DatabasePath)

	// Secrets have no defaults, but viper only maps environment variables
	// for keys it knows about
	v.SetDefault("jwt_secret", "")
	v.SetDefault("gateway_secret", "")

	v.SetEnvPrefix("USERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewWithCause(errors.ErrCodeConfigError,
				fmt.Sprintf("failed to read config file: %s", path), err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewWithCause(errors.ErrCodeConfigInvalid,
			"failed to unmarshal configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration. A missing or short signing secret is
// a fatal configuration error: the service must not start serving traffic.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.NewConfigError("jwt_secret is required")
	}
	if len(c.JWTSecret) < MinSecretLength {
		return errors.NewConfigError(
			fmt.Sprintf("jwt_secret must be at least %d characters", MinSecretLength))
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.NewWithCause(errors.ErrCodeConfigInvalid,
			"invalid configuration", err)
	}

	return nil
}

// TokenExpiry returns the configured bearer token lifetime
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

// IsTestEnvironment reports whether the gateway trust gate should bypass
// itself for test runs
func (c *Config) IsTestEnvironment() bool {
	return strings.EqualFold(c.Environment, "test")
}
