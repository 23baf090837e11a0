package pool

// PoolStats is a point-in-time snapshot of one language pool.
type PoolStats struct {
	Language     string `json:"language"`
	Idle         int    `json:"idle"`
	Leased       int    `json:"leased"`
	Initializing int    `json:"initializing"`
	Waiting      int    `json:"waiting"`
	MinSpare     int    `json:"min_spare"`
	MaxSize      int    `json:"max_size"`
	Circuit      string `json:"circuit"`
}

// Stats snapshots every pool under its lock, keyed by language code. Counts
// from different pools are not mutually consistent, which is fine for a
// health report.
func (m *Manager) Stats() map[string]PoolStats {
	out := make(map[string]PoolStats, len(m.pools))
	for _, lang := range m.langs {
		p := m.pools[lang]
		p.mu.Lock()
		out[lang] = PoolStats{
			Language:     lang,
			Idle:         len(p.idle),
			Leased:       p.leased,
			Initializing: p.initializing,
			Waiting:      len(p.waiters),
			MinSpare:     p.sizing.MinSpare,
			MaxSize:      p.sizing.MaxSize,
			Circuit:      p.circuitStateLocked(),
		}
		p.mu.Unlock()
	}
	return out
}
