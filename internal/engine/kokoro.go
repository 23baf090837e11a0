package engine

import (
	"context"
	"fmt"
	"time"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/kokorod/internal/voices"
)

// Config holds the Kokoro model file locations and runtime options shared by
// every pipeline the factory builds.
type Config struct {
	Model    string // model.onnx
	Voices   string // voices.bin
	Tokens   string // tokens.txt
	DataDir  string // espeak-ng-data directory
	Provider string // cpu or cuda
	Threads  int
}

// KokoroFactory builds Kokoro pipelines via sherpa-onnx. Each New call loads
// a full copy of the model, which is the expensive operation the pool exists
// to amortize.
type KokoroFactory struct {
	cfg Config
}

var _ Factory = (*KokoroFactory)(nil)

// NewKokoroFactory validates the model configuration and returns a factory.
func NewKokoroFactory(cfg Config) (*KokoroFactory, error) {
	if cfg.Model == "" || cfg.Voices == "" || cfg.Tokens == "" {
		return nil, fmt.Errorf("%w: model, voices and tokens paths are required", ErrInit)
	}
	if cfg.Provider == "" {
		cfg.Provider = "cpu"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 2
	}

	return &KokoroFactory{cfg: cfg}, nil
}

// New loads one Kokoro pipeline for lang.
func (f *KokoroFactory) New(ctx context.Context, lang string) (Engine, error) {
	if !voices.IsLanguage(lang) {
		return nil, fmt.Errorf("%w: unknown language %q", ErrInit, lang)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config := sherpa.OfflineTtsConfig{}
	config.Model.Kokoro.Model = f.cfg.Model
	config.Model.Kokoro.Voices = f.cfg.Voices
	config.Model.Kokoro.Tokens = f.cfg.Tokens
	config.Model.Kokoro.DataDir = f.cfg.DataDir
	config.Model.Kokoro.LengthScale = 1.0
	config.Model.NumThreads = f.cfg.Threads
	config.Model.Provider = f.cfg.Provider
	config.MaxNumSentences = 1

	start := time.Now()
	tts := sherpa.NewOfflineTts(&config)
	if tts == nil {
		return nil, fmt.Errorf("%w: sherpa rejected kokoro model %q", ErrInit, f.cfg.Model)
	}
	if err := ctx.Err(); err != nil {
		// Shutdown raced the model load; release it straight away.
		sherpa.DeleteOfflineTts(tts)
		return nil, err
	}

	log.Debug().
		Str("event", "engine_loaded").
		Str("lang", lang).
		Str("provider", f.cfg.Provider).
		Str("duration", time.Since(start).String()).
		Msg("kokoro pipeline loaded")

	return &kokoroEngine{lang: lang, tts: tts}, nil
}

// kokoroEngine wraps one loaded OfflineTts instance.
type kokoroEngine struct {
	lang string
	tts  *sherpa.OfflineTts
}

var _ Engine = (*kokoroEngine)(nil)

// Synthesize renders text with the requested voice and speed. Generation is
// blocking and cannot be interrupted, so ctx is only consulted up front.
func (e *kokoroEngine) Synthesize(ctx context.Context, p Params) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := voices.Lookup(e.lang, p.Voice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntime, err)
	}
	speed := p.Speed
	if speed == 0 {
		speed = voices.DefaultSpeed
	}

	audio := e.tts.Generate(p.Text, v.Speaker, speed)
	if audio == nil || len(audio.Samples) == 0 {
		return nil, fmt.Errorf("%w: no audio produced for voice %s", ErrRuntime, v.Name)
	}

	return &Result{Samples: audio.Samples, SampleRate: audio.SampleRate}, nil
}

func (e *kokoroEngine) Close() error {
	sherpa.DeleteOfflineTts(e.tts)
	return nil
}
