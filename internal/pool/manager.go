// Package pool implements the pipeline pool manager: a bounded, dynamically
// sized set of ready synthesis engines per language, with lease-based
// arbitration, FIFO wait queues, a background scaler and a per-language
// circuit breaker around construction.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/kokorod/internal/engine"
)

// Manager owns all language pools and the construction machinery behind
// them. It is an explicitly owned value handed to the request layer;
// construct isolated instances freely in tests.
type Manager struct {
	cfg     Config
	factory engine.Factory
	pools   map[string]*languagePool
	langs   []string // sorted, for stable iteration

	// warmups bounds concurrent constructions across all pools so that
	// simultaneous large model loads cannot spike GPU memory.
	warmups chan struct{}

	buildCtx    context.Context
	buildCancel context.CancelFunc

	builds   sync.WaitGroup
	destroys sync.WaitGroup
	leases   sync.WaitGroup

	scl     *scaler
	started atomic.Bool
	closed  atomic.Bool
}

// NewManager validates cfg and builds a manager with one pool per configured
// language. Call Start to pre-warm and begin scaling.
func NewManager(cfg Config, f engine.Factory) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pool config: %w", err)
	}
	if f == nil {
		return nil, errors.New("engine factory is required")
	}

	m := &Manager{
		cfg:     cfg,
		factory: f,
		pools:   make(map[string]*languagePool, len(cfg.Pools)),
		warmups: make(chan struct{}, cfg.MaxConcurrentWarmups),
	}
	for lang, sizing := range cfg.Pools {
		m.pools[lang] = newLanguagePool(lang, sizing)
		m.langs = append(m.langs, lang)
	}
	sort.Strings(m.langs)
	m.buildCtx, m.buildCancel = context.WithCancel(context.Background())

	return m, nil
}

// Start schedules each pool's pre-warm constructions and launches the
// scaler. Warmups run in the background, bounded by the warmup semaphore;
// Start does not wait for them.
func (m *Manager) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	for _, lang := range m.langs {
		p := m.pools[lang]
		p.mu.Lock()
		for i := 0; i < p.sizing.Initial; i++ {
			m.scheduleBuildLocked(p, false)
		}
		p.mu.Unlock()
	}
	m.scl = newScaler(m, m.cfg.ScaleInterval)
	m.scl.start()

	log.Info().
		Str("event", "pool_started").
		Int("languages", len(m.langs)).
		Int("max_concurrent_warmups", m.cfg.MaxConcurrentWarmups).
		Msg("pipeline pool manager started")
}

// Acquire leases a pipeline for lang, waiting in FIFO order behind earlier
// requests when none is idle. The configured acquire timeout is layered onto
// ctx; expiry of either deadline yields ErrPoolExhausted, while a plain
// cancellation of ctx is returned as is.
func (m *Manager) Acquire(ctx context.Context, lang string) (*Lease, error) {
	if m.closed.Load() {
		return nil, ErrShuttingDown
	}
	p, ok := m.pools[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}

	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if h := p.popIdleLocked(); h != nil {
		l := m.leaseLocked(p, h)
		p.mu.Unlock()
		log.Debug().
			Str("event", "lease_granted").
			Str("lang", lang).
			Str("handle", h.id.String()).
			Msg("idle pipeline leased")
		return l, nil
	}
	if p.circuitOpen {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: language %s circuit open", ErrEngineUnavailable, lang)
	}
	if p.totalLocked() < p.sizing.MaxSize && !time.Now().Before(p.nextRetryAt) {
		m.scheduleBuildLocked(p, false)
	}
	w := &waiter{ch: make(chan *Lease, 1), at: start}
	p.waiters = append(p.waiters, w)
	position := len(p.waiters)
	p.mu.Unlock()

	log.Debug().
		Str("event", "lease_queued").
		Str("lang", lang).
		Int("position", position).
		Msg("waiting for a pipeline")

	select {
	case l, ok := <-w.ch:
		if !ok {
			return nil, w.err
		}
		return l, nil
	case <-actx.Done():
	}

	// Timed out or canceled. Settle against a concurrent grant under the
	// lock: a waiter is only ever fulfilled and dequeued in one critical
	// section, so either we remove it here or it already holds a result.
	p.mu.Lock()
	removed := p.removeWaiterLocked(w)
	p.mu.Unlock()
	if !removed {
		select {
		case l, ok := <-w.ch:
			if ok && l != nil {
				// The grant raced our deadline; put the pipeline back so
				// the next waiter gets it.
				m.Release(l)
			} else if w.err != nil {
				return nil, w.err
			}
		default:
		}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	return nil, fmt.Errorf("%w: language %s after %s",
		ErrPoolExhausted, lang, time.Since(start).Round(time.Millisecond))
}

// Release returns a leased pipeline to its pool, waking the longest waiter
// if any. Releasing the same lease more than once is a no-op.
func (m *Manager) Release(l *Lease) {
	m.release(l, false)
}

// ReleaseBroken retires a leased pipeline whose engine reported an
// unrecoverable failure, so corrupted state never reaches another request.
// The pool does not replace it inline; the scaler restores min_spare on its
// next tick.
func (m *Manager) ReleaseBroken(l *Lease) {
	m.release(l, true)
}

func (m *Manager) release(l *Lease, broken bool) {
	if l == nil || !l.released.CompareAndSwap(false, true) {
		return
	}
	defer m.leases.Done()
	h := l.h
	p := m.pools[h.lang]

	if !broken {
		// Per-use engine state is cleared outside the lock; the handle is
		// still exclusively ours until parked.
		if r, ok := h.engine.(engine.Resetter); ok {
			if err := r.Reset(); err != nil {
				log.Warn().
					Str("event", "pipeline_reset_failed").
					Str("lang", h.lang).
					Str("handle", h.id.String()).
					Err(err).
					Msg("retiring pipeline after failed reset")
				broken = true
			}
		}
	}

	p.mu.Lock()
	if _, live := p.handles[h.id]; !live {
		// Already swept by shutdown; nothing to put back.
		p.mu.Unlock()
		return
	}
	p.leased--
	if broken {
		p.retireLocked(h)
		p.mu.Unlock()
		log.Warn().
			Str("event", "pipeline_retired").
			Str("lang", h.lang).
			Str("handle", h.id.String()).
			Str("reason", "runtime_failure").
			Msg("pipeline retired after runtime failure")
		m.destroyAsync(h, "runtime_failure")
		return
	}
	if w := p.popWaiterLocked(); w != nil {
		nl := m.leaseLocked(p, h)
		w.ch <- nl
		waited := time.Since(w.at)
		p.mu.Unlock()
		log.Debug().
			Str("event", "lease_handoff").
			Str("lang", h.lang).
			Str("handle", h.id.String()).
			Str("waited", waited.Round(time.Millisecond).String()).
			Msg("released pipeline handed to waiter")
		return
	}
	p.parkLocked(h, time.Now())
	p.mu.Unlock()
}

// leaseLocked marks h leased and wraps it in a new lease. Caller holds p.mu.
func (m *Manager) leaseLocked(p *languagePool, h *handle) *Lease {
	h.state = StateLeased
	p.leased++
	m.leases.Add(1)
	return &Lease{h: h, id: uuid.New(), acquiredAt: time.Now()}
}

// Shutdown drains the manager: new acquires fail fast with ErrShuttingDown,
// queued waiters are failed, in-flight constructions are canceled, and
// outstanding leases get until ctx's deadline to release before every
// pipeline is destroyed. Returns the drain error if the deadline passed with
// leases still outstanding.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	log.Info().Str("event", "pool_shutdown").Msg("pipeline pool manager shutting down")

	if m.scl != nil {
		m.scl.stop()
	}
	m.buildCancel()
	// Setting closed under each pool's lock orders every in-flight grant
	// before the drain wait below: a goroutine that leased past the closed
	// check did so in an earlier critical section, so its WaitGroup count is
	// visible here.
	for _, lang := range m.langs {
		p := m.pools[lang]
		p.mu.Lock()
		p.closed = true
		p.failWaitersLocked(ErrShuttingDown)
		p.mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		m.leases.Wait()
		m.builds.Wait()
		m.destroys.Wait()
		close(done)
	}()

	var drainErr error
	select {
	case <-done:
	case <-ctx.Done():
		drainErr = fmt.Errorf("pool drain: %w", ctx.Err())
		log.Warn().
			Str("event", "pool_drain_timeout").
			Msg("destroying pipelines with leases still outstanding")
	}

	for _, lang := range m.langs {
		p := m.pools[lang]
		p.mu.Lock()
		victims := make([]*handle, 0, len(p.handles))
		for _, h := range p.handles {
			victims = append(victims, h)
		}
		for _, h := range victims {
			p.retireLocked(h)
		}
		p.idle = nil
		p.leased = 0
		p.mu.Unlock()
		for _, h := range victims {
			m.destroy(h, "shutdown")
		}
	}

	log.Info().Str("event", "pool_stopped").Msg("pipeline pool manager stopped")
	return drainErr
}

// ShuttingDown reports whether Shutdown has begun.
func (m *Manager) ShuttingDown() bool {
	return m.closed.Load()
}

// Languages returns the configured language codes, sorted.
func (m *Manager) Languages() []string {
	out := make([]string, len(m.langs))
	copy(out, m.langs)
	return out
}
