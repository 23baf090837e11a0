package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func openTestStore(t *testing.T, maxSizeMB int64) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "synth.db"), maxSizeMB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKeyIsStableAndDiscriminating(t *testing.T) {
	k := Key("h", "hf_beta", 1.0, "namaste")
	assert.Equal(t, k, Key("h", "hf_beta", 1.0, "namaste"))
	assert.Len(t, k, 64)

	assert.NotEqual(t, k, Key("h", "hf_beta", 1.0, "namaste!"))
	assert.NotEqual(t, k, Key("h", "hf_alpha", 1.0, "namaste"))
	assert.NotEqual(t, k, Key("a", "hf_beta", 1.0, "namaste"))
	assert.NotEqual(t, k, Key("h", "hf_beta", 1.5, "namaste"))
}

func TestGetPutRoundTrip(t *testing.T) {
	s := openTestStore(t, 16)

	key := Key("h", "hf_beta", 1.0, "namaste duniya")
	_, ok := s.Get(key)
	require.False(t, ok, "empty store must miss")

	wav := []byte("RIFF-not-really-wav-but-bytes")
	s.Put(key, "h", "hf_beta", 1.0, 14, wav)

	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, wav, got)

	entries, bytes, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, entries)
	assert.EqualValues(t, len(wav), bytes)

	// Same key again is an update, not a duplicate.
	s.Put(key, "h", "hf_beta", 1.0, 14, wav)
	entries, _, err = s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, entries)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s := openTestStore(t, 1)
	// Work with a tiny budget so three clips overflow it.
	s.maxBytes = 2500

	clip := make([]byte, 1000)
	s.Put(Key("h", "hf_beta", 1.0, "one"), "h", "hf_beta", 1.0, 3, clip)
	time.Sleep(10 * time.Millisecond) // last_access has millisecond resolution
	s.Put(Key("h", "hf_beta", 1.0, "two"), "h", "hf_beta", 1.0, 3, clip)
	time.Sleep(10 * time.Millisecond)

	// Touch "one" so "two" becomes the eviction candidate.
	_, ok := s.Get(Key("h", "hf_beta", 1.0, "one"))
	require.True(t, ok)
	time.Sleep(10 * time.Millisecond)

	s.Put(Key("h", "hf_beta", 1.0, "three"), "h", "hf_beta", 1.0, 5, clip)

	_, ok = s.Get(Key("h", "hf_beta", 1.0, "two"))
	assert.False(t, ok, "least recently used clip must be evicted")
	_, ok = s.Get(Key("h", "hf_beta", 1.0, "one"))
	assert.True(t, ok, "recently touched clip must survive")
	_, ok = s.Get(Key("h", "hf_beta", 1.0, "three"))
	assert.True(t, ok, "fresh clip must survive")

	_, bytes, err := s.Stats()
	require.NoError(t, err)
	assert.LessOrEqual(t, bytes, int64(2500))
}

func TestZeroBudgetDisablesEviction(t *testing.T) {
	s := openTestStore(t, 0)

	clip := make([]byte, 4096)
	for _, text := range []string{"a", "b", "c", "d"} {
		s.Put(Key("h", "hf_beta", 1.0, text), "h", "hf_beta", 1.0, 1, clip)
	}

	entries, _, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 4, entries)
}
