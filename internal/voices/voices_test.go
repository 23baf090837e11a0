package voices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lang    string
		voice   string
		wantErr bool
	}{
		{name: "default hindi voice", lang: "h", voice: "hf_beta", wantErr: false},
		{name: "american voice", lang: "a", voice: "af_heart", wantErr: false},
		{name: "french voice", lang: "f", voice: "ff_siwis", wantErr: false},
		{name: "voice from wrong language", lang: "h", voice: "af_heart", wantErr: true},
		{name: "unknown voice", lang: "b", voice: "bf_nobody", wantErr: true},
		{name: "unknown language", lang: "x", voice: "xf_any", wantErr: true},
		{name: "empty language", lang: "", voice: "hf_beta", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Lookup(tt.lang, tt.voice)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.voice, v.Name)
			assert.Equal(t, tt.lang, v.Lang)
		})
	}
}

func TestSpeakerIDsAreStableAndUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[int]string, Count())
	for _, lang := range Languages() {
		vs, err := VoicesFor(lang)
		require.NoError(t, err)
		for _, v := range vs {
			prev, dup := seen[v.Speaker]
			require.False(t, dup, "speaker id %d assigned to both %s and %s", v.Speaker, prev, v.Name)
			seen[v.Speaker] = v.Name
		}
	}
	assert.Len(t, seen, Count())

	// Ids must not depend on map iteration order.
	v, err := Lookup("a", "af_adele")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Speaker)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	v, err := Default("h")
	require.NoError(t, err)
	assert.Equal(t, DefaultVoice, v.Name)

	v, err = Default("b")
	require.NoError(t, err)
	assert.Equal(t, "bf_alice", v.Name)

	_, err = Default("nope")
	assert.Error(t, err)
}

func TestValidateSpeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		speed   float32
		wantErr bool
	}{
		{name: "default", speed: DefaultSpeed, wantErr: false},
		{name: "lower bound", speed: 0.5, wantErr: false},
		{name: "upper bound", speed: 2.0, wantErr: false},
		{name: "too slow", speed: 0.49, wantErr: true},
		{name: "too fast", speed: 2.01, wantErr: true},
		{name: "zero", speed: 0, wantErr: true},
		{name: "negative", speed: -1, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateSpeed(tt.speed)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClampSpeed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MinSpeed, ClampSpeed(0.1))
	assert.Equal(t, MaxSpeed, ClampSpeed(5))
	assert.Equal(t, float32(1.3), ClampSpeed(1.3))
}

func TestLanguages(t *testing.T) {
	t.Parallel()

	got := Languages()
	assert.Equal(t, []string{"a", "b", "e", "f", "h", "i", "j", "p", "z"}, got)
	for _, lang := range got {
		assert.True(t, IsLanguage(lang))
		assert.NotEmpty(t, LanguageName(lang))
	}
	assert.False(t, IsLanguage("q"))
}
