package server

import (
	"crypto/subtle"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per request with a generated request id.
// Liveness probes are demoted to debug to keep the log readable.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		reqID := uuid.New().String()
		w.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(rec, r)

		level := zerolog.InfoLevel
		if r.URL.Path == "/healthz" {
			level = zerolog.DebugLevel
		}
		log.WithLevel(level).
			Str("event", "http_request").
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", clientIP(r)).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request handled")
	})
}

// rateLimited rejects callers that exceed their per-client token bucket.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !s.limiter.allow(key) {
			log.Warn().
				Str("event", "rate_limited").
				Str("remote", key).
				Msg("request rejected by rate limiter")
			writeError(w, http.StatusTooManyRequests, "rate_limited",
				"rate limit exceeded, slow down")

			return
		}

		next.ServeHTTP(w, r)
	})
}

// authorized checks the configured API key against the X-API-Key header or
// the api_key body field. An empty configured key disables the check.
func (s *Server) authorized(r *http.Request, bodyKey string) bool {
	if s.cfg.APIKey == "" {
		return true
	}

	provided := r.Header.Get("X-API-Key")
	if provided == "" {
		provided = bodyKey
	}

	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.APIKey)) == 1
}

// clientIP resolves the caller's address, honouring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the originating client.
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
