package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"CHOREBOSS_PORT", "CHOREBOSS_DB_PATH", "CHOREBOSS_LOG_LEVEL", "CHOREBOSS_LOG_FORMAT",
	"CHOREBOSS_BCRYPT_COST", "CHOREBOSS_PIN_RATE_LIMIT", "CHOREBOSS_SHUTDOWN_TIMEOUT",
}

// clearEnv blanks every setting for the test; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "choreboss.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 10, cfg.PINRateLimit)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHOREBOSS_PORT", "9090")
	t.Setenv("CHOREBOSS_DB_PATH", "/var/lib/choreboss/house.db")
	t.Setenv("CHOREBOSS_LOG_FORMAT", "json")
	t.Setenv("CHOREBOSS_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/var/lib/choreboss/house.db", cfg.DBPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even to
	// the empty string, so drop them for this test.
	for _, k := range keys {
		os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHOREBOSS_PORT=7070\nCHOREBOSS_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CHOREBOSS_PORT")
		os.Unsetenv("CHOREBOSS_LOG_LEVEL")
	})

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadBadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHOREBOSS_PORT", "eighty")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Port: 8080, DBPath: "x.db", BcryptCost: 10, PINRateLimit: 5, ShutdownTimeout: time.Second}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"bcrypt too low", func(c *Config) { c.BcryptCost = 2 }},
		{"bcrypt too high", func(c *Config) { c.BcryptCost = 40 }},
		{"no rate limit", func(c *Config) { c.PINRateLimit = 0 }},
		{"no shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
