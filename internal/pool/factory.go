package pool

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/kokorod/internal/engine"
)

// scheduleBuildLocked reserves capacity for one construction and launches it
// in the background. Caller holds p.mu; the initializing count is bumped
// before the lock is dropped so concurrent schedulers see the reservation.
func (m *Manager) scheduleBuildLocked(p *languagePool, probe bool) {
	p.initializing++
	if probe {
		p.probing = true
	}
	m.builds.Add(1)
	go m.build(p, probe)
}

// build performs one construction attempt outside every pool lock, gated by
// the manager-wide warmup semaphore.
func (m *Manager) build(p *languagePool, probe bool) {
	defer m.builds.Done()

	select {
	case m.warmups <- struct{}{}:
	case <-m.buildCtx.Done():
		m.buildAbandoned(p, probe)
		return
	}
	defer func() { <-m.warmups }()

	start := time.Now()
	eng, err := m.factory.New(m.buildCtx, p.lang)
	if err != nil {
		if m.buildCtx.Err() != nil {
			m.buildAbandoned(p, probe)
			return
		}
		m.buildFailed(p, probe, err, time.Since(start))
		return
	}
	if m.buildCtx.Err() != nil {
		// Shutdown raced the load; the fresh engine is surplus.
		if cerr := eng.Close(); cerr != nil {
			log.Warn().
				Str("event", "pipeline_destroy_failed").
				Str("lang", p.lang).
				Err(cerr).
				Msg("failed to discard surplus pipeline")
		}
		m.buildAbandoned(p, probe)
		return
	}
	m.buildReady(p, probe, eng, time.Since(start))
}

func (m *Manager) buildAbandoned(p *languagePool, probe bool) {
	p.mu.Lock()
	p.initializing--
	if probe {
		p.probing = false
	}
	p.mu.Unlock()
	log.Debug().
		Str("event", "pipeline_build_abandoned").
		Str("lang", p.lang).
		Msg("construction canceled by shutdown")
}

// buildReady registers the new pipeline and either hands it straight to the
// longest waiter or parks it idle. Any success closes the circuit and resets
// the failure count.
func (m *Manager) buildReady(p *languagePool, probe bool, eng engine.Engine, took time.Duration) {
	now := time.Now()
	h := &handle{
		id:        uuid.New(),
		lang:      p.lang,
		engine:    eng,
		state:     StateInitializing,
		createdAt: now,
	}

	p.mu.Lock()
	p.initializing--
	if probe {
		p.probing = false
	}
	if p.closed {
		// Shutdown won the race; discard instead of registering a handle
		// the sweep may already have missed.
		p.mu.Unlock()
		m.destroy(h, "shutdown")
		return
	}
	reopened := p.circuitOpen
	p.circuitOpen = false
	p.failures = 0
	p.nextRetryAt = time.Time{}
	p.lastInitErr = nil
	p.handles[h.id] = h
	handedOff := false
	if w := p.popWaiterLocked(); w != nil {
		w.ch <- m.leaseLocked(p, h)
		handedOff = true
	} else {
		p.parkLocked(h, now)
	}
	p.mu.Unlock()

	log.Info().
		Str("event", "pipeline_ready").
		Str("lang", p.lang).
		Str("handle", h.id.String()).
		Str("took", took.Round(time.Millisecond).String()).
		Bool("probe", probe).
		Bool("handed_off", handedOff).
		Msg("pipeline initialized")
	if reopened {
		log.Info().
			Str("event", "circuit_closed").
			Str("lang", p.lang).
			Msg("construction recovered, circuit closed")
	}
}

// buildFailed advances the circuit breaker. Below the threshold the next
// attempt is paced by an exponential backoff; at the threshold the circuit
// opens for the cooldown; a failed half-open probe re-arms the cooldown.
func (m *Manager) buildFailed(p *languagePool, probe bool, err error, took time.Duration) {
	now := time.Now()

	p.mu.Lock()
	p.initializing--
	if probe {
		p.probing = false
	}
	p.failures++
	p.lastInitErr = err
	opened := false
	switch {
	case p.circuitOpen:
		p.openUntil = now.Add(m.cfg.CircuitCooldown)
	case p.failures >= m.cfg.FailureThreshold:
		p.circuitOpen = true
		p.openUntil = now.Add(m.cfg.CircuitCooldown)
		opened = true
	default:
		p.nextRetryAt = now.Add(retryDelay(m.cfg.RetryBackoff, p.failures))
	}
	if p.circuitOpen && len(p.handles) == 0 && p.initializing == 0 {
		// Nothing live and nothing in flight: queued waiters can never be
		// served, so fail them now rather than letting them time out.
		p.failWaitersLocked(fmt.Errorf("%w: language %s: %v", ErrEngineUnavailable, p.lang, err))
	}
	failures := p.failures
	p.mu.Unlock()

	log.Error().
		Str("event", "pipeline_init_failed").
		Str("lang", p.lang).
		Int("consecutive_failures", failures).
		Bool("probe", probe).
		Str("took", took.Round(time.Millisecond).String()).
		Err(err).
		Msg("pipeline construction failed")
	if opened {
		log.Warn().
			Str("event", "circuit_opened").
			Str("lang", p.lang).
			Str("cooldown", m.cfg.CircuitCooldown.String()).
			Msg("construction suspended after repeated failures")
	}
}

// destroyAsync tears the engine down in the background so release paths and
// the scaler never block on model teardown.
func (m *Manager) destroyAsync(h *handle, reason string) {
	m.destroys.Add(1)
	go func() {
		defer m.destroys.Done()
		m.destroy(h, reason)
	}()
}

// destroy is best-effort: a failed teardown is logged and otherwise ignored,
// the handle is already unreachable.
func (m *Manager) destroy(h *handle, reason string) {
	if err := h.engine.Close(); err != nil {
		log.Warn().
			Str("event", "pipeline_destroy_failed").
			Str("lang", h.lang).
			Str("handle", h.id.String()).
			Str("reason", reason).
			Err(err).
			Msg("pipeline teardown failed")
		return
	}
	log.Debug().
		Str("event", "pipeline_destroyed").
		Str("lang", h.lang).
		Str("handle", h.id.String()).
		Str("reason", reason).
		Msg("pipeline destroyed")
}
