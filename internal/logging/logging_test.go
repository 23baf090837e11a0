package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/kokorod/internal/config"
)

func TestSetupLevelFallback(t *testing.T) {
	require.NoError(t, Setup(config.LogConfig{Level: "nope", Format: "json"}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	require.NoError(t, Setup(config.LogConfig{Level: "debug", Format: "json"}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupFileSink(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "kokorod.log")
	require.NoError(t, Setup(config.LogConfig{
		Level:     "info",
		Format:    "json",
		File:      file,
		MaxSizeMB: 1,
	}))

	log.Info().Str("event", "logging_test").Msg("file sink")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"logging_test"`)
}
