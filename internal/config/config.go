// Package config loads and validates the application's configuration from
// environment variables and an optional .env file, using Viper for loading
// and precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/prompt-warden/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig
	Database *DBConfig
	Gateway  GatewayConfig
	Logging  logger.Config
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string
}

// DBConfig configures the postgres connection pool.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// GatewayConfig configures the external LLM gateway client. Timeout bounds
// every generate/chat call; a run that exceeds it is recorded as failed with
// an unavailable classification.
type GatewayConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "warden")
	viper.SetDefault("DB_NAME", "prompt_warden")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	viper.SetDefault("GATEWAY_BASE_URL", "http://localhost:8000")
	viper.SetDefault("GATEWAY_TIMEOUT", "60s")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	if viper.GetString("DB_PASSWORD") == "" {
		return nil, fmt.Errorf("DB_PASSWORD must be set")
	}

	gatewayTimeout := viper.GetDuration("GATEWAY_TIMEOUT")
	if gatewayTimeout <= 0 {
		return nil, fmt.Errorf("GATEWAY_TIMEOUT must be a positive duration")
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Database: &DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Gateway: GatewayConfig{
			BaseURL: viper.GetString("GATEWAY_BASE_URL"),
			Timeout: gatewayTimeout,
		},
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
	}, nil
}
