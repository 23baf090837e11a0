package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// MockFactory builds deterministic in-memory engines. It backs the "mock"
// backend for model-less smoke deployments and gives tests control over
// construction failures, latency and concurrency observation.
type MockFactory struct {
	InitDelay  time.Duration
	SynthDelay time.Duration
	SampleRate int

	mu          sync.Mutex
	failNext    int
	created     int
	destroyed   int
	building    int
	maxBuilding int
}

var _ Factory = (*MockFactory)(nil)

// NewMockFactory returns a factory producing instant, always-healthy engines.
func NewMockFactory() *MockFactory {
	return &MockFactory{SampleRate: 24000}
}

// FailNext makes the next n constructions fail with ErrInit.
func (f *MockFactory) FailNext(n int) {
	f.mu.Lock()
	f.failNext = n
	f.mu.Unlock()
}

// Created returns how many engines were successfully constructed.
func (f *MockFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Destroyed returns how many engines were closed.
func (f *MockFactory) Destroyed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

// MaxConcurrentBuilds returns the high-water mark of constructions running
// at the same time.
func (f *MockFactory) MaxConcurrentBuilds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxBuilding
}

// New constructs a mock engine, honoring InitDelay and injected failures.
func (f *MockFactory) New(ctx context.Context, lang string) (Engine, error) {
	f.mu.Lock()
	f.building++
	if f.building > f.maxBuilding {
		f.maxBuilding = f.building
	}
	fail := f.failNext > 0
	if fail {
		f.failNext--
	}
	delay := f.InitDelay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.building--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, fmt.Errorf("%w: injected failure for %q", ErrInit, lang)
	}

	f.mu.Lock()
	f.created++
	f.mu.Unlock()

	rate := f.SampleRate
	if rate <= 0 {
		rate = 24000
	}

	return &MockEngine{factory: f, lang: lang, rate: rate, delay: f.SynthDelay}, nil
}

// MockEngine renders a sine tone sized to the input text.
type MockEngine struct {
	factory *MockFactory
	lang    string
	rate    int
	delay   time.Duration

	mu       sync.Mutex
	calls    int
	resets   int
	closed   bool
	synthErr error
}

var (
	_ Engine   = (*MockEngine)(nil)
	_ Resetter = (*MockEngine)(nil)
)

// FailNextSynthesis makes the next Synthesize call return err.
func (e *MockEngine) FailNextSynthesis(err error) {
	e.mu.Lock()
	e.synthErr = err
	e.mu.Unlock()
}

// Calls returns how many Synthesize calls the engine served.
func (e *MockEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Resets returns how many times Reset ran.
func (e *MockEngine) Resets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resets
}

// Closed reports whether the engine was closed.
func (e *MockEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *MockEngine) Synthesize(ctx context.Context, p Params) (*Result, error) {
	e.mu.Lock()
	e.calls++
	injected := e.synthErr
	e.synthErr = nil
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return nil, fmt.Errorf("%w: engine closed", ErrRuntime)
	}
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if injected != nil {
		return nil, injected
	}

	speed := p.Speed
	if speed <= 0 {
		speed = 1.0
	}
	// 10ms of 440Hz tone per input character, scaled by speed.
	n := int(float64(len(p.Text)) * 0.01 * float64(e.rate) / float64(speed))
	if n == 0 {
		n = 1
	}
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.3 * float32(math.Sin(2*math.Pi*440*float64(i)/float64(e.rate)))
	}

	return &Result{Samples: samples, SampleRate: e.rate}, nil
}

func (e *MockEngine) Reset() error {
	e.mu.Lock()
	e.resets++
	e.synthErr = nil
	e.mu.Unlock()
	return nil
}

func (e *MockEngine) Close() error {
	e.mu.Lock()
	wasClosed := e.closed
	e.closed = true
	e.mu.Unlock()
	if wasClosed {
		return nil
	}
	e.factory.mu.Lock()
	e.factory.destroyed++
	e.factory.mu.Unlock()
	return nil
}
