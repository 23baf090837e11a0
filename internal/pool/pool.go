package pool

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// waiter is one queued Acquire call. The channel is buffered so a fulfilling
// goroutine can grant a lease without blocking inside the critical section;
// err is written under the pool lock before the channel is closed, so a
// receiver that sees the close may read it without further synchronization.
type waiter struct {
	ch  chan *Lease
	err error
	at  time.Time
}

// languagePool holds the handles and wait queue for one language. Every
// mutable field is guarded by mu. Critical sections move pointers and
// counters only; engine construction and teardown always run outside the
// lock.
type languagePool struct {
	lang   string
	sizing Sizing

	mu           sync.Mutex
	closed       bool                  // set under mu at shutdown; no grants or builds after
	handles      map[uuid.UUID]*handle // every live handle, idle or leased
	idle         []*handle             // ordered by release time, oldest first
	waiters      []*waiter             // FIFO
	leased       int
	initializing int

	// Construction circuit breaker.
	failures    int
	circuitOpen bool
	openUntil   time.Time
	probing     bool
	nextRetryAt time.Time
	lastInitErr error
}

func newLanguagePool(lang string, s Sizing) *languagePool {
	return &languagePool{
		lang:    lang,
		sizing:  s,
		handles: make(map[uuid.UUID]*handle),
	}
}

// totalLocked counts live and in-flight pipelines against max_size.
func (p *languagePool) totalLocked() int {
	return len(p.handles) + p.initializing
}

// popIdleLocked takes the most recently parked handle, keeping long-idle
// ones at the front where the scaler's TTL sweep looks first.
func (p *languagePool) popIdleLocked() *handle {
	if len(p.idle) == 0 {
		return nil
	}
	h := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return h
}

// parkLocked returns h to the idle set and stamps its release time.
func (p *languagePool) parkLocked(h *handle, now time.Time) {
	h.state = StateIdle
	h.lastRelease = now
	p.idle = append(p.idle, h)
}

// popWaiterLocked dequeues the longest-waiting acquirer.
func (p *languagePool) popWaiterLocked() *waiter {
	if len(p.waiters) == 0 {
		return nil
	}
	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	return w
}

// removeWaiterLocked drops w from the queue, reporting whether it was still
// there. A false return means w was fulfilled or failed in an earlier
// critical section and already holds its outcome.
func (p *languagePool) removeWaiterLocked(w *waiter) bool {
	for i, q := range p.waiters {
		if q == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// failWaitersLocked fails every queued waiter with err and empties the
// queue.
func (p *languagePool) failWaitersLocked(err error) {
	for _, w := range p.waiters {
		w.err = err
		close(w.ch)
	}
	p.waiters = nil
}

// retireLocked removes h from the live set. The caller owns the actual
// teardown, outside the lock.
func (p *languagePool) retireLocked(h *handle) {
	h.state = StateRetiring
	delete(p.handles, h.id)
}

func (p *languagePool) circuitStateLocked() string {
	switch {
	case p.circuitOpen && p.probing:
		return "half_open"
	case p.circuitOpen:
		return "open"
	default:
		return "closed"
	}
}
