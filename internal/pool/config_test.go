package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config { return testConfig("h", "a") }

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
			name:    "no pools",
			mutate:  func(c *Config) { c.Pools = nil },
			wantErr: "at least one language",
		},
		{
			name: "max size below one",
			mutate: func(c *Config) {
				c.Pools["h"] = Sizing{MinSpare: 0, MaxSize: 0}
			},
			wantErr: "max_size",
		},
		{
			name: "min spare exceeds max size",
			mutate: func(c *Config) {
				c.Pools["h"] = Sizing{MinSpare: 5, MaxSize: 2}
			},
			wantErr: "min_spare",
		},
		{
			name: "initial exceeds max size",
			mutate: func(c *Config) {
				c.Pools["h"] = Sizing{Initial: 9, MinSpare: 1, MaxSize: 2}
			},
			wantErr: "initial",
		},
		{
			name: "negative idle ttl",
			mutate: func(c *Config) {
				c.Pools["h"] = Sizing{MinSpare: 1, MaxSize: 2, IdleTTL: -time.Second}
			},
			wantErr: "idle_ttl",
		},
		{
			name:    "zero acquire timeout",
			mutate:  func(c *Config) { c.AcquireTimeout = 0 },
			wantErr: "acquire_timeout",
		},
		{
			name:    "zero warmups",
			mutate:  func(c *Config) { c.MaxConcurrentWarmups = 0 },
			wantErr: "max_concurrent_warmups",
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.FailureThreshold = 0 },
			wantErr: "failure_threshold",
		},
		{
			name:    "zero cooldown",
			mutate:  func(c *Config) { c.CircuitCooldown = 0 },
			wantErr: "cooldown",
		},
		{
			name:    "negative retry backoff",
			mutate:  func(c *Config) { c.RetryBackoff = -time.Second },
			wantErr: "retry_backoff",
		},
		{
			name:    "zero scale interval",
			mutate:  func(c *Config) { c.ScaleInterval = 0 },
			wantErr: "scale_interval",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
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

func TestRetryDelay(t *testing.T) {
	base := 100 * time.Millisecond

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{name: "first failure", failures: 1, want: 100 * time.Millisecond},
		{name: "second doubles", failures: 2, want: 200 * time.Millisecond},
		{name: "third doubles again", failures: 3, want: 400 * time.Millisecond},
		{name: "below cap", failures: 10, want: 51200 * time.Millisecond},
		{name: "capped", failures: 11, want: time.Minute},
		{name: "stays capped", failures: 30, want: time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, retryDelay(base, tt.failures))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "leased", StateLeased.String())
	assert.Equal(t, "retiring", StateRetiring.String())
}
