// Package cache persists rendered WAV clips keyed by request fingerprint,
// so repeated synthesis of identical text skips the engines entirely. The
// cache is an accelerator, not a dependency: every failure is logged and the
// request proceeds as a miss.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS synth_cache (
	key         TEXT PRIMARY KEY,
	lang        TEXT NOT NULL,
	voice       TEXT NOT NULL,
	speed       REAL NOT NULL,
	chars       INTEGER NOT NULL,
	audio       BLOB NOT NULL,
	size        INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	last_access INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_synth_cache_last_access ON synth_cache(last_access);`

// Store is a sqlite-backed result cache. Safe for concurrent use; database/sql
// serializes access and the database runs in WAL mode.
type Store struct {
	db       *sql.DB
	path     string
	maxBytes int64
}

// Key fingerprints one synthesis request. Identical requests always map to
// the same key; any parameter change produces a different one.
func Key(lang, voice string, speed float32, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.3f|%s", lang, voice, speed, text)
	return hex.EncodeToString(h.Sum(nil))
}

// Open opens or creates the cache database at path. maxSizeMB bounds the
// total audio payload; zero or negative disables eviction.
func Open(path string, maxSizeMB int64) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache schema: %w", err)
	}

	s := &Store{db: db, path: path, maxBytes: maxSizeMB * 1024 * 1024}

	entries, bytes, _ := s.Stats()
	log.Info().
		Str("event", "cache_opened").
		Str("path", path).
		Int64("entries", entries).
		Int64("bytes", bytes).
		Int64("max_mb", maxSizeMB).
		Msg("synthesis cache opened")

	return s, nil
}

// Get returns the cached WAV for key and refreshes its access time.
func (s *Store) Get(key string) ([]byte, bool) {
	var audio []byte
	err := s.db.QueryRow(`SELECT audio FROM synth_cache WHERE key = ?`, key).Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		log.Warn().Str("event", "cache_get_failed").Err(err).Msg("cache lookup failed")
		return nil, false
	}
	if _, err := s.db.Exec(
		`UPDATE synth_cache SET last_access = ? WHERE key = ?`,
		time.Now().UnixMilli(), key,
	); err != nil {
		log.Warn().Str("event", "cache_touch_failed").Err(err).Msg("cache access-time update failed")
	}
	return audio, true
}

// Put stores wav under key, then evicts least recently used entries until
// the store fits its budget again.
func (s *Store) Put(key, lang, voice string, speed float32, chars int, wav []byte) {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(
		`INSERT INTO synth_cache (key, lang, voice, speed, chars, audio, size, created_at, last_access)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET last_access = excluded.last_access`,
		key, lang, voice, speed, chars, wav, len(wav), now, now,
	)
	if err != nil {
		log.Warn().Str("event", "cache_put_failed").Err(err).Msg("cache store failed")
		return
	}
	s.evict()
}

// Stats returns the entry count and total audio bytes held.
func (s *Store) Stats() (entries, bytes int64, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM synth_cache`,
	).Scan(&entries, &bytes)
	return entries, bytes, err
}

// evict removes entries in last_access order until the budget is met.
func (s *Store) evict() {
	if s.maxBytes <= 0 {
		return
	}
	_, total, err := s.Stats()
	if err != nil {
		log.Warn().Str("event", "cache_evict_failed").Err(err).Msg("cache size query failed")
		return
	}
	if total <= s.maxBytes {
		return
	}

	rows, err := s.db.Query(`SELECT key, size FROM synth_cache ORDER BY last_access ASC`)
	if err != nil {
		log.Warn().Str("event", "cache_evict_failed").Err(err).Msg("cache eviction scan failed")
		return
	}
	type victim struct {
		key  string
		size int64
	}
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.key, &v.size); err != nil {
			break
		}
		victims = append(victims, v)
		total -= v.size
		if total <= s.maxBytes {
			break
		}
	}
	rows.Close()

	evicted := 0
	for _, v := range victims {
		if _, err := s.db.Exec(`DELETE FROM synth_cache WHERE key = ?`, v.key); err != nil {
			log.Warn().Str("event", "cache_evict_failed").Err(err).Msg("cache delete failed")
			continue
		}
		evicted++
	}
	if evicted > 0 {
		log.Debug().
			Str("event", "cache_evicted").
			Int("entries", evicted).
			Msg("evicted least recently used clips")
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
