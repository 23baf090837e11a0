// Package logging configures the global zerolog logger for the daemon.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/andrei-cloud/kokorod/internal/config"
)

// Setup initializes the global zerolog logger. The console sink follows
// cfg.Format (human or json); when cfg.File is set a rotating file sink is
// added alongside it. Unknown levels fall back to info.
func Setup(cfg config.LogConfig) error {
	zerolog.TimeFieldFormat = time.RFC3339Nano // always initialize base logger with timestamp.

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stderr // stderr keeps stdout free for command output.
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		}
	}

	sink := console
	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating log directory: %w", err)
			}
		}
		sink = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}

	log.Logger = zerolog.New(sink).With().Timestamp().Logger()

	return nil
}
