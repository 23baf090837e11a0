package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client keeps its token bucket.
const visitorTTL = 10 * time.Minute

// visitors hands out one token bucket per client key and forgets clients
// that stay idle past the TTL.
type visitors struct {
	mu      sync.Mutex
	entries map[string]*visitor
	rps     rate.Limit
	burst   int

	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newVisitors(rps float64, burst int) *visitors {
	return &visitors{
		entries: make(map[string]*visitor),
		rps:     rate.Limit(rps),
		burst:   burst,
		stop:    make(chan struct{}),
	}
}

// allow reports whether the client identified by key may proceed.
func (v *visitors) allow(key string) bool {
	now := time.Now()

	v.mu.Lock()
	ent, ok := v.entries[key]
	if !ok {
		ent = &visitor{lim: rate.NewLimiter(v.rps, v.burst)}
		v.entries[key] = ent
	}
	ent.lastSeen = now
	lim := ent.lim
	v.mu.Unlock()

	return lim.Allow()
}

// cleanup drops buckets that have not been used within the TTL.
func (v *visitors) cleanup() {
	cutoff := time.Now().Add(-visitorTTL)

	v.mu.Lock()
	defer v.mu.Unlock()

	for key, ent := range v.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(v.entries, key)
		}
	}
}

// startJanitor sweeps idle buckets periodically until stopJanitor is called.
func (v *visitors) startJanitor() {
	t := time.NewTicker(visitorTTL / 2)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-v.stop:
				return
			case <-t.C:
				v.cleanup()
			}
		}
	}()
}

func (v *visitors) stopJanitor() {
	v.stopOnce.Do(func() { close(v.stop) })
}

// size reports the tracked client count.
func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.entries)
}
