package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"AI4_HOME", "AI4_ADDR", "AI4_SHUTDOWN_TIMEOUT",
	"AI4_REMOTE", "AI4_CLIENT_TIMEOUT", "AI4_CLIENT_RETRIES",
	"AI4_PAYER", "AI4_INFER_COST",
	"LOG_LEVEL", "LOG_DEV",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RATE_LIMIT_ENABLED",
	"RATE_LIMIT_GLOBAL_RPS",
}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "~/.ai4", cfg.Home)

	// Server config
	assert.Equal(t, "127.0.0.1:8444", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	// Client config
	assert.Empty(t, cfg.Client.Remote)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.Retries)

	// Billing config
	assert.Equal(t, "you", cfg.Billing.Payer)
	assert.Equal(t, int64(1), cfg.Billing.Cost)

	// Logging config
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Zero(t, cfg.RateLimit.GlobalRPS)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	home := filepath.Join(t.TempDir(), "home")
	envVars := map[string]string{
		"AI4_HOME":              home,
		"AI4_ADDR":              "0.0.0.0:9000",
		"AI4_SHUTDOWN_TIMEOUT":  "1s",
		"AI4_REMOTE":            "http://bridge:8444",
		"AI4_CLIENT_TIMEOUT":    "250ms",
		"AI4_CLIENT_RETRIES":    "0",
		"AI4_PAYER":             "alice",
		"AI4_INFER_COST":        "5",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_RPS":        "500",
		"RATE_LIMIT_BURST":      "1000",
		"RATE_LIMIT_ENABLED":    "false",
		"RATE_LIMIT_GLOBAL_RPS": "50",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "http://bridge:8444", cfg.Client.Remote)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.Timeout)
	assert.Equal(t, 0, cfg.Client.Retries)
	assert.Equal(t, "alice", cfg.Billing.Payer)
	assert.Equal(t, int64(5), cfg.Billing.Cost)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 50, cfg.RateLimit.GlobalRPS)

	layout, err := cfg.Layout()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "registry.json"), layout.Registry())
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI4_INFER_COST", "2")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, int64(2), cfg.Billing.Cost)
	assert.Equal(t, "error", cfg.Logging.Level)

	// Verify default values still apply
	assert.Equal(t, "~/.ai4", cfg.Home)
	assert.Equal(t, "you", cfg.Billing.Payer)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"malformed integer", "AI4_INFER_COST", "one"},
		{"negative cost", "AI4_INFER_COST", "-1"},
		{"negative retries", "AI4_CLIENT_RETRIES", "-2"},
		{"malformed duration", "AI4_CLIENT_TIMEOUT", "soon"},
		{"zero rate", "RATE_LIMIT_RPS", "0"},
		{"negative global rate", "RATE_LIMIT_GLOBAL_RPS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Home = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.RequestsPerSecond = 0
	assert.NoError(t, cfg.Validate())
}
