package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/kokorod/internal/audio"
	"github.com/andrei-cloud/kokorod/internal/cache"
	"github.com/andrei-cloud/kokorod/internal/engine"
	"github.com/andrei-cloud/kokorod/internal/pool"
	"github.com/andrei-cloud/kokorod/internal/voices"
)

// maxBodyBytes bounds the synthesize request body; the text limit is
// enforced separately in characters.
const maxBodyBytes = 1 << 20

// SynthesizeRequest is the POST /synthesize payload. lang_code defaults to
// the voice's language prefix, or to the service default when both are
// omitted. speed 0 means the default speed.
type SynthesizeRequest struct {
	Text     string  `json:"text"`
	LangCode string  `json:"lang_code,omitempty"`
	Voice    string  `json:"voice,omitempty"`
	Speed    float32 `json:"speed,omitempty"`
	APIKey   string  `json:"api_key,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports service status and per-language pool counters.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Backend   string                    `json:"backend"`
	Uptime    string                    `json:"uptime"`
	Requests  int64                     `json:"requests"`
	CacheHits int64                     `json:"cache_hits"`
	Pools     map[string]pool.PoolStats `json:"pools"`
}

// LanguageVoices lists the voices of one language.
type LanguageVoices struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Voices []string `json:"voices"`
}

// SpeedRange describes the accepted speed values.
type SpeedRange struct {
	Min     float32 `json:"min"`
	Max     float32 `json:"max"`
	Default float32 `json:"default"`
}

// VoicesResponse is the GET /voices payload.
type VoicesResponse struct {
	DefaultLanguage string           `json:"default_language"`
	DefaultVoice    string           `json:"default_voice"`
	Speed           SpeedRange       `json:"speed"`
	Languages       []LanguageVoices `json:"languages"`
}

// handleSynthesize renders text to speech through a pooled pipeline.
//
// @Summary     Synthesize speech
// @Description Renders text to a mono 16-bit PCM WAV clip using a pooled Kokoro
// @Description pipeline for the requested language. Identical requests are served
// @Description from the synthesis cache when it is enabled.
// @Tags        synthesis
// @Accept      json
// @Produce     audio/wav
// @Produce     json
// @Param       request    body    SynthesizeRequest  true   "Synthesis request"
// @Param       X-API-Key  header  string             false  "API key, required when the server is configured with one"
// @Success     200  {file}    file           "WAV audio"
// @Failure     400  {object}  ErrorResponse  "Invalid request"
// @Failure     401  {object}  ErrorResponse  "Missing or invalid API key"
// @Failure     429  {object}  ErrorResponse  "Rate limit exceeded"
// @Failure     500  {object}  ErrorResponse  "Synthesis failed"
// @Failure     503  {object}  ErrorResponse  "No pipeline capacity or shutting down"
// @Router      /synthesize [post]
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	var req SynthesizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json: "+err.Error())
		return
	}

	if !s.authorized(r, req.APIKey) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid api key")
		return
	}

	lang, params, err := s.resolveRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	key := cache.Key(lang, params.Voice, params.Speed, params.Text)
	if s.cache != nil {
		if wav, ok := s.cache.Get(key); ok {
			s.cacheHits.Add(1)
			log.Debug().
				Str("event", "cache_hit").
				Str("lang", lang).
				Str("voice", params.Voice).
				Msg("serving cached synthesis")
			writeWAV(w, wav, true)

			return
		}
	}

	start := time.Now()

	lease, err := s.mgr.Acquire(r.Context(), lang)
	if err != nil {
		writePoolError(w, err)
		return
	}

	res, err := lease.Engine().Synthesize(r.Context(), params)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away mid-synthesis; the pipeline is fine.
			s.mgr.Release(lease)
			return
		}

		s.mgr.ReleaseBroken(lease)
		log.Error().
			Err(err).
			Str("event", "synthesis_failed").
			Str("lang", lang).
			Str("voice", params.Voice).
			Msg("synthesis failed")
		writeError(w, http.StatusInternalServerError, "synthesis_failed", "synthesis failed")

		return
	}
	s.mgr.Release(lease)

	wav := audio.EncodeWAV(res.Samples, res.SampleRate)
	if s.cache != nil {
		s.cache.Put(key, lang, params.Voice, params.Speed, utf8.RuneCountInString(params.Text), wav)
	}

	log.Info().
		Str("event", "synthesis_completed").
		Str("lang", lang).
		Str("voice", params.Voice).
		Int("chars", utf8.RuneCountInString(params.Text)).
		Int("samples", len(res.Samples)).
		Dur("took", time.Since(start)).
		Msg("synthesis completed")

	writeWAV(w, wav, false)
}

// resolveRequest validates a request against the voice catalog and fills in
// defaults. It returns the pool language and the engine parameters.
func (s *Server) resolveRequest(req *SynthesizeRequest) (string, engine.Params, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", engine.Params{}, errors.New("text must not be empty")
	}
	if n := utf8.RuneCountInString(text); n > s.cfg.MaxTextLen {
		return "", engine.Params{}, fmt.Errorf("text length %d exceeds limit %d", n, s.cfg.MaxTextLen)
	}

	lang := req.LangCode
	if lang == "" {
		if req.Voice != "" {
			lang = req.Voice[:1] // voice names carry their language prefix.
		} else {
			lang = voices.DefaultLanguage
		}
	}

	var (
		v   voices.Voice
		err error
	)
	if req.Voice == "" {
		v, err = voices.Default(lang)
	} else {
		v, err = voices.Lookup(lang, req.Voice)
	}
	if err != nil {
		return "", engine.Params{}, err
	}

	speed := req.Speed
	if speed == 0 {
		speed = voices.DefaultSpeed
	}
	if err := voices.ValidateSpeed(speed); err != nil {
		return "", engine.Params{}, err
	}

	return lang, engine.Params{Text: text, Voice: v.Name, Speed: speed}, nil
}

// handleHealth reports pool and service status.
//
// @Summary     Service health
// @Description Reports per-language pool counters, circuit state, uptime and
// @Description request totals. Returns 503 while the daemon is draining.
// @Tags        status
// @Produce     json
// @Success     200  {object}  HealthResponse
// @Failure     503  {object}  HealthResponse  "Shutting down"
// @Router      /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.mgr.ShuttingDown() {
		status = "shutting_down"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Backend:   s.backend,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Requests:  s.requests.Load(),
		CacheHits: s.cacheHits.Load(),
		Pools:     s.mgr.Stats(),
	})
}

// handleHealthz is the terse liveness probe.
//
// @Summary     Liveness probe
// @Tags        status
// @Produce     plain
// @Success     200  {string}  string  "ok"
// @Router      /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleVoices lists the voice catalog.
//
// @Summary     List voices
// @Description Lists every language and voice the service can synthesize,
// @Description along with the accepted speed range.
// @Tags        status
// @Produce     json
// @Success     200  {object}  VoicesResponse
// @Router      /voices [get]
func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	langs := voices.Languages()
	out := VoicesResponse{
		DefaultLanguage: voices.DefaultLanguage,
		DefaultVoice:    voices.DefaultVoice,
		Speed: SpeedRange{
			Min:     voices.MinSpeed,
			Max:     voices.MaxSpeed,
			Default: voices.DefaultSpeed,
		},
		Languages: make([]LanguageVoices, 0, len(langs)),
	}

	for _, code := range langs {
		vs, err := voices.VoicesFor(code)
		if err != nil {
			continue
		}
		names := make([]string, len(vs))
		for i, v := range vs {
			names[i] = v.Name
		}
		out.Languages = append(out.Languages, LanguageVoices{
			Code:   code,
			Name:   voices.LanguageName(code),
			Voices: names,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// writePoolError maps pool and engine errors onto HTTP status codes.
func writePoolError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pool.ErrUnknownLanguage):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, pool.ErrPoolExhausted):
		writeError(w, http.StatusServiceUnavailable, "pool_exhausted",
			"all pipelines are busy, try again later")
	case errors.Is(err, pool.ErrEngineUnavailable):
		writeError(w, http.StatusServiceUnavailable, "engine_unavailable",
			"pipeline initialization is failing, try again later")
	case errors.Is(err, pool.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, "shutting_down",
			"service is shutting down")
	case errors.Is(err, engine.ErrInit):
		writeError(w, http.StatusInternalServerError, "engine_init_failed",
			"pipeline failed to initialize")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error",
			"internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeWAV(w http.ResponseWriter, wav []byte, cached bool) {
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	if cached {
		w.Header().Set("X-Cache", "hit")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}
