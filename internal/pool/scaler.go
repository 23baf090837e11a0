package pool

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// scaler is the background controller that grows pools toward min_spare,
// retires idle pipelines past their TTL and probes open circuits. It only
// ever nudges state toward the target; transient over- or undershoot from
// in-flight work is resolved by simply reading the counts again next tick.
type scaler struct {
	m        *Manager
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func newScaler(m *Manager, interval time.Duration) *scaler {
	return &scaler{m: m, interval: interval, done: make(chan struct{})}
}

func (s *scaler) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// stop cancels the loop and waits for the in-progress tick to finish.
func (s *scaler) stop() {
	s.cancel()
	<-s.done
}

func (s *scaler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Debug().
		Str("event", "scaler_started").
		Str("interval", s.interval.String()).
		Msg("scaler running")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("event", "scaler_stopped").Msg("scaler exiting")
			return
		case <-ticker.C:
			s.tick(time.Now())
		}
	}
}

func (s *scaler) tick(now time.Time) {
	for _, lang := range s.m.langs {
		s.scalePool(s.m.pools[lang], now)
	}
}

// scalePool applies one reconciliation step to a single pool. All state
// reads and transitions happen under the pool lock; construction and
// teardown run outside it.
func (s *scaler) scalePool(p *languagePool, now time.Time) {
	var (
		victims []*handle
		probed  bool
		probeEr error
		grown   int
	)

	p.mu.Lock()
	if p.circuitOpen {
		// Half-open probe: one attempt at a time, and only once the
		// cooldown has passed and nothing else is in flight.
		if now.After(p.openUntil) && !p.probing && p.initializing == 0 {
			probeEr = p.lastInitErr
			s.m.scheduleBuildLocked(p, true)
			probed = true
		}
	} else if !now.Before(p.nextRetryAt) {
		deficit := p.sizing.MinSpare - (len(p.idle) + p.initializing)
		if room := p.sizing.MaxSize - p.totalLocked(); deficit > room {
			deficit = room
		}
		for i := 0; i < deficit; i++ {
			s.m.scheduleBuildLocked(p, false)
			grown++
		}
	}
	// Shrink from the front: idle is ordered oldest release first. Spares
	// at or below min_spare are never expired, whatever their age.
	for len(p.idle) > p.sizing.MinSpare {
		h := p.idle[0]
		if now.Sub(h.lastRelease) <= p.sizing.IdleTTL {
			break
		}
		p.idle = p.idle[1:]
		p.retireLocked(h)
		victims = append(victims, h)
	}
	p.mu.Unlock()

	if probed {
		log.Info().
			Str("event", "circuit_probe").
			Str("lang", p.lang).
			AnErr("last_error", probeEr).
			Msg("cooldown elapsed, probing construction")
	}
	if grown > 0 {
		log.Debug().
			Str("event", "scale_up").
			Str("lang", p.lang).
			Int("scheduled", grown).
			Msg("growing pool toward min_spare")
	}
	for _, h := range victims {
		log.Info().
			Str("event", "pipeline_expired").
			Str("lang", p.lang).
			Str("handle", h.id.String()).
			Str("age", now.Sub(h.createdAt).Round(time.Second).String()).
			Msg("retiring idle pipeline past ttl")
		s.m.destroyAsync(h, "idle_ttl")
	}
}
