package pool

import "errors"

// Sentinel errors returned by the manager. Callers classify them with
// errors.Is; the HTTP layer maps each to a distinct status code.
var (
	// ErrPoolExhausted means no pipeline became available before the
	// acquire timeout. Recoverable by caller retry with backoff.
	ErrPoolExhausted = errors.New("pipeline pool exhausted")

	// ErrEngineUnavailable means the language's circuit is open after
	// repeated construction failures; acquire fails fast without
	// attempting construction.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrShuttingDown means the manager is draining and rejects new
	// acquires. Callers should not retry against this instance.
	ErrShuttingDown = errors.New("pool manager shutting down")

	// ErrUnknownLanguage means no pool is configured for the requested
	// language code.
	ErrUnknownLanguage = errors.New("unknown language")
)
