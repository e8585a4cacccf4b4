package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 3000, cfg.RateLimit.StoreTimeoutMs)
	assert.Equal(t, 500, cfg.RateLimit.SweepBatchSize)
	assert.Equal(t, 24, cfg.RateLimit.StaleAfterHours)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("QUICKPAY_SERVER_PORT", "9090")
	t.Setenv("QUICKPAY_RATELIMIT_BACKEND", "redis")
	t.Setenv("QUICKPAY_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		return Config{RateLimit: RateLimitConfig{Backend: "memory", SweepBatchSize: 500}}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory backend", mutate: func(c *Config) {}},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.RateLimit.Backend = "redis" },
			wantErr: "requires redis.addr",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.RateLimit.Backend = "postgres" },
			wantErr: "requires database.dsn",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.RateLimit.Backend = "firestore" },
			wantErr: "unknown ratelimit.backend",
		},
		{
			name:    "oversized sweep batch",
			mutate:  func(c *Config) { c.RateLimit.SweepBatchSize = 1000 },
			wantErr: "sweep_batch_size",
		},
		{
			name: "invalid preset",
			mutate: func(c *Config) {
				c.RateLimit.Presets = map[string]PresetConfig{"otp_send": {MaxRequests: 0, WindowSeconds: 60}}
			},
			wantErr: "ratelimit.presets.otp_send",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
