package pool

import (
	"fmt"
	"time"
)

// Sizing bounds one language pool. Values are immutable after the manager is
// constructed.
type Sizing struct {
	// Initial is the pre-warm target scheduled by Start.
	Initial int
	// MinSpare is the idle-handle floor the scaler maintains.
	MinSpare int
	// MaxSize caps idle+leased+initializing.
	MaxSize int
	// IdleTTL is how long an idle handle above MinSpare may sit unused
	// before the scaler retires it. Zero makes idle handles immediately
	// eligible.
	IdleTTL time.Duration
}

func (s Sizing) validate(lang string) error {
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
	return nil
}

// Config configures the manager. One language pool is instantiated per entry
// in Pools; the remaining knobs apply across the whole manager.
type Config struct {
	// Pools maps language codes to their sizing.
	Pools map[string]Sizing

	// AcquireTimeout bounds how long Acquire waits for a pipeline.
	AcquireTimeout time.Duration
	// MaxConcurrentWarmups bounds simultaneous constructions across all
	// pools, keeping concurrent large model loads off the GPU.
	MaxConcurrentWarmups int
	// FailureThreshold is the consecutive construction failure count that
	// opens a language's circuit.
	FailureThreshold int
	// CircuitCooldown is how long an open circuit rejects work before the
	// scaler is allowed one half-open probe.
	CircuitCooldown time.Duration
	// RetryBackoff is the base delay between construction attempts while
	// failures stay below the threshold; it doubles per consecutive
	// failure, capped at one minute.
	RetryBackoff time.Duration
	// ScaleInterval is the scaler tick period.
	ScaleInterval time.Duration
}

// Validate checks structural consistency. It does not check language codes
// against the voice catalog; that belongs to the configuration layer.
func (c Config) Validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one language pool is required")
	}
	for lang, s := range c.Pools {
		if lang == "" {
			return fmt.Errorf("language code must not be empty")
		}
		if err := s.validate(lang); err != nil {
			return err
		}
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire_timeout must be positive")
	}
	if c.MaxConcurrentWarmups < 1 {
		return fmt.Errorf("max_concurrent_warmups must be at least 1")
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure_threshold must be at least 1")
	}
	if c.CircuitCooldown <= 0 {
		return fmt.Errorf("circuit_cooldown must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry_backoff must not be negative")
	}
	if c.ScaleInterval <= 0 {
		return fmt.Errorf("scale_interval must be positive")
	}
	return nil
}

const maxRetryBackoff = time.Minute

// retryDelay returns the backoff before the next construction attempt after
// the given number of consecutive failures.
func retryDelay(base time.Duration, failures int) time.Duration {
	if base <= 0 || failures <= 0 {
		return 0
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	if d > maxRetryBackoff {
		return maxRetryBackoff
	}
	return d
}
