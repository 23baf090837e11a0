// Package voices holds the static Kokoro voice catalog and the request
// validation rules derived from it: which language codes exist, which voices
// belong to each language, and the allowed speed range.
package voices

import (
	"fmt"
	"sort"
)

// Speed bounds accepted by the synthesis API.
const (
	MinSpeed     float32 = 0.5
	MaxSpeed     float32 = 2.0
	DefaultSpeed float32 = 1.0
)

// Defaults applied when a request omits the language or voice.
const (
	DefaultLanguage = "h"
	DefaultVoice    = "hf_beta"
)

// Voice is one entry of the catalog. Speaker is the numeric speaker id the
// Kokoro model expects; ids are assigned deterministically from the catalog
// order and must match the layout of the voices archive the model was
// exported with.
type Voice struct {
	Name    string
	Lang    string
	Speaker int
}

// languageNames maps short language codes to display names.
var languageNames = map[string]string{
	"a": "American English",
	"b": "British English",
	"e": "Spanish",
	"f": "French",
	"h": "Hindi",
	"i": "Italian",
	"j": "Japanese",
	"p": "Brazilian Portuguese",
	"z": "Mandarin Chinese",
}

// catalog lists the voices shipped with Kokoro-82M, grouped by language code.
// Order within a language is the canonical archive order.
var catalog = map[string][]string{
	"a": {
		"af_adele", "af_amy", "af_ann", "af_carl", "af_clara", "af_david",
		"af_derek", "af_elizabeth", "af_emma", "af_grace", "af_henry",
		"af_jack", "af_james", "af_jessica", "af_john", "af_katie",
		"af_kevin", "af_laura", "af_linda", "af_mark", "af_mary",
		"af_michael", "af_mike", "af_peter", "af_rachel", "af_richard",
		"af_robert", "af_sam", "af_sarah", "af_susan", "af_tom",
		"af_william", "am_austin", "am_ben", "am_brian", "am_chris",
		"am_daniel", "am_eric", "am_george", "am_jacob", "am_jason",
		"am_jeffrey", "am_joseph", "am_joshua", "am_justin", "am_keith",
		"am_kevin", "am_kyle", "am_larry", "am_matthew", "am_paul",
		"am_ryan", "am_scott", "am_sean", "am_shawn", "am_stephen",
		"am_steven", "am_timothy", "am_todd", "am_tyler", "am_victor",
		"af_heart", "af_star", "am_wave",
	},
	"b": {
		"bf_alice", "bf_emma", "bf_isabella", "bf_lily",
		"bm_daniel", "bm_fable", "bm_george", "bm_lewis",
	},
	"e": {"ef_dora", "em_alex", "em_santa"},
	"f": {"ff_siwis"},
	"h": {"hf_alpha", "hf_beta", "hm_omega", "hm_psi"},
	"i": {"if_sara", "im_nicola"},
	"j": {"jf_alpha", "jf_gongitsune", "jf_nezumi", "jf_tebukuro", "jm_kumo"},
	"p": {"pf_dora", "pm_alex", "pm_santa"},
	"z": {
		"zf_xiaobei", "zf_xiaoni", "zf_xiaoxiao", "zf_xiaoyi",
		"zm_yunjian", "zm_yunxi", "zm_yunxia", "zm_yunyang",
	},
}

var (
	langs  []string
	byLang map[string][]Voice
	byKey  map[string]Voice
)

func init() {
	langs = make([]string, 0, len(catalog))
	for code := range catalog {
		langs = append(langs, code)
	}
	sort.Strings(langs)

	byLang = make(map[string][]Voice, len(catalog))
	byKey = make(map[string]Voice)
	sid := 0
	for _, code := range langs {
		for _, name := range catalog[code] {
			v := Voice{Name: name, Lang: code, Speaker: sid}
			sid++
			byLang[code] = append(byLang[code], v)
			byKey[code+"/"+name] = v
		}
	}
}

// Languages returns all known language codes, sorted.
func Languages() []string {
	out := make([]string, len(langs))
	copy(out, langs)
	return out
}

// LanguageName returns the display name for a language code.
func LanguageName(lang string) string {
	return languageNames[lang]
}

// IsLanguage reports whether lang is a known language code.
func IsLanguage(lang string) bool {
	_, ok := catalog[lang]
	return ok
}

// VoicesFor returns the voices of one language in catalog order.
func VoicesFor(lang string) ([]Voice, error) {
	vs, ok := byLang[lang]
	if !ok {
		return nil, fmt.Errorf("unknown language code %q", lang)
	}
	out := make([]Voice, len(vs))
	copy(out, vs)
	return out, nil
}

// Lookup resolves a (language, voice) pair against the catalog.
func Lookup(lang, name string) (Voice, error) {
	if _, ok := catalog[lang]; !ok {
		return Voice{}, fmt.Errorf("unknown language code %q", lang)
	}
	v, ok := byKey[lang+"/"+name]
	if !ok {
		return Voice{}, fmt.Errorf("voice %q is not valid for language %q", name, lang)
	}
	return v, nil
}

// Default returns the voice used when a request names only a language.
// The service default language keeps its historical default voice; other
// languages fall back to their first catalog entry.
func Default(lang string) (Voice, error) {
	if lang == DefaultLanguage {
		return Lookup(lang, DefaultVoice)
	}
	vs, ok := byLang[lang]
	if !ok {
		return Voice{}, fmt.Errorf("unknown language code %q", lang)
	}
	return vs[0], nil
}

// ValidateSpeed checks a requested speed against the allowed range.
func ValidateSpeed(speed float32) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("speed %.2f outside allowed range [%.1f, %.1f]", speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// ClampSpeed forces a speed into the allowed range.
func ClampSpeed(speed float32) float32 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// Count returns the total number of voices in the catalog.
func Count() int {
	return len(byKey)
}
