// Package engine defines the synthesis engine capability consumed by the
// pipeline pool, and its concrete backends.
package engine

import (
	"context"
	"errors"
)

// Sentinel errors for the two failure classes an engine can produce.
// Construction failures feed the pool's circuit breaker; runtime failures
// retire the leased pipeline.
var (
	ErrInit    = errors.New("engine initialization failed")
	ErrRuntime = errors.New("engine runtime failure")
)

// Params is one synthesis request.
type Params struct {
	Text  string
	Voice string
	Speed float32
}

// Result holds the rendered audio.
type Result struct {
	Samples    []float32
	SampleRate int
}

// Engine is one loaded synthesis pipeline. Implementations are not required
// to be safe for concurrent use; the pool guarantees exclusive access while
// a lease is held.
type Engine interface {
	// Synthesize renders text to audio samples. Both construction and
	// synthesis are blocking, fallible operations.
	Synthesize(ctx context.Context, p Params) (*Result, error)
	// Close releases the engine's model and device memory.
	Close() error
}

// Resetter is implemented by engines that carry per-use state which must be
// cleared before the pipeline is handed to the next lease holder.
type Resetter interface {
	Reset() error
}

// Factory constructs engines for a language. Construction honors ctx: a
// factory must abandon an in-flight build and release partial resources when
// ctx is canceled.
type Factory interface {
	New(ctx context.Context, lang string) (Engine, error)
}
