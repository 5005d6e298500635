// Package config loads choreboss settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port            int
	DBPath          string
	LogLevel        string
	LogFormat       string
	BcryptCost      int
	PINRateLimit    int
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file from the working directory, then the
// CHOREBOSS_* environment variables. Real environment variables win over
// the file.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an
// error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := &Config{
		Port:            getEnvInt("CHOREBOSS_PORT", 8080),
		DBPath:          getEnv("CHOREBOSS_DB_PATH", "choreboss.db"),
		LogLevel:        getEnv("CHOREBOSS_LOG_LEVEL", "info"),
		LogFormat:       getEnv("CHOREBOSS_LOG_FORMAT", "text"),
		BcryptCost:      getEnvInt("CHOREBOSS_BCRYPT_COST", bcrypt.DefaultCost),
		PINRateLimit:    getEnvInt("CHOREBOSS_PIN_RATE_LIMIT", 10),
		ShutdownTimeout: getEnvDuration("CHOREBOSS_SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d outside %d..%d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.PINRateLimit < 1 {
		return fmt.Errorf("pin rate limit must be positive, got %d", c.PINRateLimit)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
