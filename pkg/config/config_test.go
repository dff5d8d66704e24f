package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexa-sys/userhub/pkg/errors"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "userhub", cfg.JWTIssuer)
	assert.Equal(t, "userhub-clients", cfg.JWTAudience)
	assert.Equal(t, 24, cfg.JWTExpiryHours)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		wantCode errors.ErrorCode
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.JWTSecret = validSecret },
		},
		{
			name:     "missing secret",
			mutate:   func(c *Config) {},
			wantErr:  true,
			wantCode: errors.ErrCodeConfigError,
		},
		{
			name:     "short secret",
			mutate:   func(c *Config) { c.JWTSecret = "short" },
			wantErr:  true,
			wantCode: errors.ErrCodeConfigError,
		},
		{
			name:     "31 characters is still too short",
			mutate:   func(c *Config) { c.JWTSecret = strings.Repeat("a", 31) },
			wantErr:  true,
			wantCode: errors.ErrCodeConfigError,
		},
		{
			name: "zero expiry hours",
			mutate: func(c *Config) {
				c.JWTSecret = validSecret
				c.JWTExpiryHours = 0
			},
			wantErr:  true,
			wantCode: errors.ErrCodeConfigInvalid,
		},
		{
			name: "missing database path",
			mutate: func(c *Config) {
				c.JWTSecret = validSecret
				c.DatabasePath = ""
			},
			wantErr:  true,
			wantCode: errors.ErrCodeConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, tt.wantCode))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userhub.yaml")
	content := `
jwt_secret: "` + validSecret + `"
jwt_expiry_hours: 12
environment: "test"
gateway_secret: "gw-secret"
http_port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, validSecret, cfg.JWTSecret)
	assert.Equal(t, 12, cfg.JWTExpiryHours)
	assert.Equal(t, "gw-secret", cfg.GatewaySecret)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.True(t, cfg.IsTestEnvironment())

	// Unset values fall back to defaults
	assert.Equal(t, "userhub", cfg.JWTIssuer)
}

func TestLoad_MissingSecretIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9090\n"), 0644))

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigError))
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/userhub.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfig_TokenExpiry(t *testing.T) {
	cfg := Default()
	cfg.JWTExpiryHours = 12
	assert.Equal(t, 12*time.Hour, cfg.TokenExpiry())
}

func TestConfig_IsTestEnvironment(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.IsTestEnvironment())

	cfg.Environment = "test"
	assert.True(t, cfg.IsTestEnvironment())

	cfg.Environment = "Test"
	assert.True(t, cfg.IsTestEnvironment())

	cfg.Environment = "staging"
	assert.False(t, cfg.IsTestEnvironment())
}
