package pool

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/andrei-cloud/kokorod/internal/engine"
)

// State is the lifecycle state of a pipeline handle. A handle is in exactly
// one state at a time, guarded by its pool's mutex.
type State int

const (
	// StateInitializing covers a scheduled or in-flight construction.
	StateInitializing State = iota
	// StateIdle means parked in the pool, ready to lease.
	StateIdle
	// StateLeased means exclusively owned by one lease holder.
	StateLeased
	// StateRetiring means removed from the pool, awaiting destruction.
	StateRetiring
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateIdle:
		return "idle"
	case StateLeased:
		return "leased"
	case StateRetiring:
		return "retiring"
	default:
		return "unknown"
	}
}

// handle wraps one synthesis engine instance with lifecycle metadata. It is
// owned by its language pool; exclusive use transfers to the lease holder
// while leased.
type handle struct {
	id     uuid.UUID
	lang   string
	engine engine.Engine

	// state and lastRelease are guarded by the owning pool's mutex.
	state       State
	createdAt   time.Time
	lastRelease time.Time
}

// Lease grants exclusive use of one pipeline handle until released. Release
// through the manager is mandatory on every exit path and idempotent: the
// second and later releases are no-ops.
type Lease struct {
	h          *handle
	id         uuid.UUID
	acquiredAt time.Time
	released   atomic.Bool
}

// ID returns the lease's identity, distinct from the handle's.
func (l *Lease) ID() uuid.UUID {
	return l.id
}

// Lang returns the language code of the leased pipeline.
func (l *Lease) Lang() string {
	return l.h.lang
}

// AcquiredAt returns when the lease was granted.
func (l *Lease) AcquiredAt() time.Time {
	return l.acquiredAt
}

// Engine returns the leased synthesis engine. Valid only until release.
func (l *Lease) Engine() engine.Engine {
	return l.h.engine
}
