// Package config loads and validates the kokorod configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/andrei-cloud/kokorod/internal/voices"
)

// Config is the root configuration for the kokorod daemon.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Engine EngineConfig `mapstructure:"engine"`
	Pool   PoolConfig   `mapstructure:"pool"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	APIKey          string          `mapstructure:"api_key"`
	MaxTextLen      int             `mapstructure:"max_text_len"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// Addr returns the host:port the server binds.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig bounds per-client request rates.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// EngineConfig selects and configures the synthesis backend.
type EngineConfig struct {
	Backend  string `mapstructure:"backend"` // "kokoro" or "mock"
	Model    string `mapstructure:"model"`
	Voices   string `mapstructure:"voices"`
	Tokens   string `mapstructure:"tokens"`
	DataDir  string `mapstructure:"data_dir"`
	Provider string `mapstructure:"provider"` // "cpu" or "cuda"
	Threads  int    `mapstructure:"threads"`
}

// PoolConfig sizes the pipeline pools. Top-level values apply to every
// configured language; Overrides adjusts individual ones.
type PoolConfig struct {
	Languages            []string                `mapstructure:"languages"`
	Initial              int                     `mapstructure:"initial"`
	MinSpare             int                     `mapstructure:"min_spare"`
	MaxSize              int                     `mapstructure:"max_size"`
	IdleTTL              time.Duration           `mapstructure:"idle_ttl"`
	AcquireTimeout       time.Duration           `mapstructure:"acquire_timeout"`
	MaxConcurrentWarmups int                     `mapstructure:"max_concurrent_warmups"`
	FailureThreshold     int                     `mapstructure:"failure_threshold"`
	CircuitCooldown      time.Duration           `mapstructure:"circuit_cooldown"`
	RetryBackoff         time.Duration           `mapstructure:"retry_backoff"`
	ScaleInterval        time.Duration           `mapstructure:"scale_interval"`
	Overrides            map[string]PoolOverride `mapstructure:"overrides"`
}

// PoolOverride adjusts one language's sizing away from the shared defaults.
// Nil fields inherit.
type PoolOverride struct {
	Initial  *int           `mapstructure:"initial"`
	MinSpare *int           `mapstructure:"min_spare"`
	MaxSize  *int           `mapstructure:"max_size"`
	IdleTTL  *time.Duration `mapstructure:"idle_ttl"`
}

// Sizing is one language's resolved pool bounds.
type Sizing struct {
	Initial  int
	MinSpare int
	MaxSize  int
	IdleTTL  time.Duration
}

// Resolved applies per-language overrides on top of the shared sizing.
func (p PoolConfig) Resolved() map[string]Sizing {
	out := make(map[string]Sizing, len(p.Languages))
	for _, lang := range p.Languages {
		s := Sizing{
			Initial:  p.Initial,
			MinSpare: p.MinSpare,
			MaxSize:  p.MaxSize,
			IdleTTL:  p.IdleTTL,
		}
		if o, ok := p.Overrides[lang]; ok {
			if o.Initial != nil {
				s.Initial = *o.Initial
			}
			if o.MinSpare != nil {
				s.MinSpare = *o.MinSpare
			}
			if o.MaxSize != nil {
				s.MaxSize = *o.MaxSize
			}
			if o.IdleTTL != nil {
				s.IdleTTL = *o.IdleTTL
			}
		}
		out[lang] = s
	}
	return out
}

// CacheConfig gates the synthesis result cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	MaxMB   int64  `mapstructure:"max_mb"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // human, json
	File       string `mapstructure:"file"`   // empty disables the file sink
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file, environment variables and defaults. If
// path is non-empty it is used directly; otherwise the search order is
// ./kokorod.yaml, ./configs/kokorod.yaml, /etc/kokorod/kokorod.yaml.
// Environment variables use the KOKOROD_ prefix with dots replaced by
// underscores (KOKOROD_SERVER_PORT, KOKOROD_POOL_MAX_SIZE, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kokorod")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/kokorod")
	}

	v.SetEnvPrefix("KOKOROD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Defaults plus environment are a complete configuration; only a
		// malformed file is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.APIKey = resolveEnvRef(cfg.Server.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	// Long ceiling: synthesis of long texts holds the response open.
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.max_text_len", 5000)
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.rps", 5)
	v.SetDefault("server.rate_limit.burst", 10)

	v.SetDefault("engine.backend", "kokoro")
	v.SetDefault("engine.model", "")
	v.SetDefault("engine.voices", "")
	v.SetDefault("engine.tokens", "")
	v.SetDefault("engine.data_dir", "")
	v.SetDefault("engine.provider", "cpu")
	v.SetDefault("engine.threads", 2)

	v.SetDefault("pool.languages", []string{voices.DefaultLanguage})
	v.SetDefault("pool.initial", 10)
	v.SetDefault("pool.min_spare", 2)
	v.SetDefault("pool.max_size", 20)
	v.SetDefault("pool.idle_ttl", 5*time.Minute)
	v.SetDefault("pool.acquire_timeout", 10*time.Second)
	v.SetDefault("pool.max_concurrent_warmups", 2)
	v.SetDefault("pool.failure_threshold", 3)
	v.SetDefault("pool.circuit_cooldown", 30*time.Second)
	v.SetDefault("pool.retry_backoff", 2*time.Second)
	v.SetDefault("pool.scale_interval", 5*time.Second)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "kokorod-cache.db")
	v.SetDefault("cache.max_mb", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)
}

// Validate checks the configuration for contradictions a running daemon
// could not recover from.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxTextLen < 1 {
		return fmt.Errorf("server.max_text_len must be positive")
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("server.rate_limit.rps must be positive when enabled")
		}
		if c.Server.RateLimit.Burst < 1 {
			return fmt.Errorf("server.rate_limit.burst must be at least 1")
		}
	}

	switch c.Engine.Backend {
	case "kokoro":
		if c.Engine.Model == "" {
			return fmt.Errorf("engine.model is required for the kokoro backend")
		}
	case "mock":
	default:
		return fmt.Errorf("engine.backend %q is not supported (kokoro, mock)", c.Engine.Backend)
	}

	if len(c.Pool.Languages) == 0 {
		return fmt.Errorf("pool.languages must name at least one language")
	}
	for _, lang := range c.Pool.Languages {
		if !voices.IsLanguage(lang) {
			return fmt.Errorf("pool.languages: unknown language code %q", lang)
		}
	}
	for lang := range c.Pool.Overrides {
		if !voices.IsLanguage(lang) {
			return fmt.Errorf("pool.overrides: unknown language code %q", lang)
		}
	}
	for lang, s := range c.Pool.Resolved() {
		if s.MaxSize < 1 {
			return fmt.Errorf("pool %q: max_size must be at least 1", lang)
		}
		if s.MinSpare < 0 || s.Initial < 0 {
			return fmt.Errorf("pool %q: sizes must not be negative", lang)
		}
		if s.MinSpare > s.MaxSize {
			return fmt.Errorf("pool %q: min_spare %d exceeds max_size %d", lang, s.MinSpare, s.MaxSize)
		}
		if s.Initial > s.MaxSize {
			return fmt.Errorf("pool %q: initial %d exceeds max_size %d", lang, s.Initial, s.MaxSize)
		}
		if s.IdleTTL < 0 {
			return fmt.Errorf("pool %q: idle_ttl must not be negative", lang)
		}
	}
	if c.Pool.AcquireTimeout <= 0 {
		return fmt.Errorf("pool.acquire_timeout must be positive")
	}
	if c.Pool.MaxConcurrentWarmups < 1 {
		return fmt.Errorf("pool.max_concurrent_warmups must be at least 1")
	}
	if c.Pool.FailureThreshold < 1 {
		return fmt.Errorf("pool.failure_threshold must be at least 1")
	}
	if c.Pool.CircuitCooldown <= 0 {
		return fmt.Errorf("pool.circuit_cooldown must be positive")
	}
	if c.Pool.ScaleInterval <= 0 {
		return fmt.Errorf("pool.scale_interval must be positive")
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}

	return nil
}

// resolveEnvRef replaces a "${VAR}" value with the environment variable it
// names, so secrets can stay out of config files.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		if env := os.Getenv(val[2 : len(val)-1]); env != "" {
			return env
		}
	}
	return val
}
