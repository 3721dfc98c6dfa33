package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "warden", cfg.Database.Username)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "prompt_warden", cfg.Database.Database)
	assert.Equal(t, "http://localhost:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("GATEWAY_BASE_URL", "http://gateway:1234")
	t.Setenv("GATEWAY_TIMEOUT", "90s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "http://gateway:1234", cfg.Gateway.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigRequiresDBPassword(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoadConfigRejectsBadGatewayTimeout(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("GATEWAY_TIMEOUT", "0")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_TIMEOUT")
}
