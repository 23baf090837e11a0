package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KOKOROD_ENGINE_BACKEND", "mock")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Server.APIKey)
	assert.False(t, cfg.Server.RateLimit.Enabled)

	assert.Equal(t, []string{"h"}, cfg.Pool.Languages)
	assert.Equal(t, 10, cfg.Pool.Initial)
	assert.Equal(t, 2, cfg.Pool.MinSpare)
	assert.Equal(t, 20, cfg.Pool.MaxSize)
	assert.Equal(t, 5*time.Minute, cfg.Pool.IdleTTL)
	assert.Equal(t, 10*time.Second, cfg.Pool.AcquireTimeout)
	assert.Equal(t, 2, cfg.Pool.MaxConcurrentWarmups)
	assert.Equal(t, 3, cfg.Pool.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Pool.CircuitCooldown)

	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "human", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KOKOROD_ENGINE_BACKEND", "mock")
	t.Setenv("KOKOROD_SERVER_PORT", "9000")
	t.Setenv("KOKOROD_POOL_MAX_SIZE", "5")
	t.Setenv("KOKOROD_POOL_MIN_SPARE", "1")
	t.Setenv("KOKOROD_POOL_INITIAL", "1")
	t.Setenv("KOKOROD_POOL_IDLE_TTL", "90s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pool.MaxSize)
	assert.Equal(t, 1, cfg.Pool.MinSpare)
	assert.Equal(t, 90*time.Second, cfg.Pool.IdleTTL)
}

func TestLoadFileWithOverrides(t *testing.T) {
	t.Setenv("KOKOROD_TEST_SECRET", "hunter2")

	dir := t.TempDir()
	path := filepath.Join(dir, "kokorod.yaml")
	yaml := `
server:
  port: 8080
  api_key: ${KOKOROD_TEST_SECRET}
engine:
  backend: mock
pool:
  languages: [h, a]
  initial: 1
  min_spare: 1
  max_size: 4
  idle_ttl: 45s
  overrides:
    a:
      min_spare: 0
      max_size: 2
cache:
  enabled: true
  path: synth.db
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "hunter2", cfg.Server.APIKey, "api key env reference must resolve")
	assert.True(t, cfg.Cache.Enabled)

	sizing := cfg.Pool.Resolved()
	require.Len(t, sizing, 2)
	assert.Equal(t, Sizing{Initial: 1, MinSpare: 1, MaxSize: 4, IdleTTL: 45 * time.Second}, sizing["h"])
	assert.Equal(t, Sizing{Initial: 1, MinSpare: 0, MaxSize: 2, IdleTTL: 45 * time.Second}, sizing["a"],
		"override fields replace, unset fields inherit")
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kokorod.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a: map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			MaxTextLen:      1000,
		},
		Engine: EngineConfig{Backend: "mock", Provider: "cpu", Threads: 2},
		Pool: PoolConfig{
			Languages:            []string{"h"},
			Initial:              1,
			MinSpare:             1,
			MaxSize:              2,
			IdleTTL:              time.Minute,
			AcquireTimeout:       time.Second,
			MaxConcurrentWarmups: 1,
			FailureThreshold:     3,
			CircuitCooldown:      time.Second,
			RetryBackoff:         time.Second,
			ScaleInterval:        time.Second,
		},
		Log: LogConfig{Level: "info", Format: "human"},
	}
}

func TestValidate(t *testing.T) {
	intp := func(i int) *int { return &i }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "zero max text len",
			mutate:  func(c *Config) { c.Server.MaxTextLen = 0 },
			wantErr: "max_text_len",
		},
		{
			name: "rate limit enabled without rps",
			mutate: func(c *Config) {
				c.Server.RateLimit = RateLimitConfig{Enabled: true, RPS: 0, Burst: 1}
			},
			wantErr: "rps",
		},
		{
			name:    "unsupported backend",
			mutate:  func(c *Config) { c.Engine.Backend = "piper" },
			wantErr: "not supported",
		},
		{
			name: "kokoro backend without model",
			mutate: func(c *Config) {
				c.Engine.Backend = "kokoro"
				c.Engine.Model = ""
			},
			wantErr: "engine.model",
		},
		{
			name:    "no languages",
			mutate:  func(c *Config) { c.Pool.Languages = nil },
			wantErr: "pool.languages",
		},
		{
			name:    "unknown language",
			mutate:  func(c *Config) { c.Pool.Languages = []string{"q"} },
			wantErr: "unknown language",
		},
		{
			name: "unknown override language",
			mutate: func(c *Config) {
				c.Pool.Overrides = map[string]PoolOverride{"q": {MinSpare: intp(0)}}
			},
			wantErr: "pool.overrides",
		},
		{
			name: "min spare exceeds max size",
			mutate: func(c *Config) {
				c.Pool.MinSpare = 9
			},
			wantErr: "min_spare",
		},
		{
			name: "override breaks sizing",
			mutate: func(c *Config) {
				c.Pool.Overrides = map[string]PoolOverride{"h": {MaxSize: intp(0)}}
			},
			wantErr: "max_size",
		},
		{
			name:    "zero acquire timeout",
			mutate:  func(c *Config) { c.Pool.AcquireTimeout = 0 },
			wantErr: "acquire_timeout",
		},
		{
			name:    "zero warmups",
			mutate:  func(c *Config) { c.Pool.MaxConcurrentWarmups = 0 },
			wantErr: "max_concurrent_warmups",
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.Pool.FailureThreshold = 0 },
			wantErr: "failure_threshold",
		},
		{
			name:    "zero cooldown",
			mutate:  func(c *Config) { c.Pool.CircuitCooldown = 0 },
			wantErr: "circuit_cooldown",
		},
		{
			name:    "zero scale interval",
			mutate:  func(c *Config) { c.Pool.ScaleInterval = 0 },
			wantErr: "scale_interval",
		},
		{
			name: "cache enabled without path",
			mutate: func(c *Config) {
				c.Cache = CacheConfig{Enabled: true, Path: ""}
			},
			wantErr: "cache.path",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
