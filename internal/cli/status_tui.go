package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrei-cloud/kokorod/internal/server"
)

const statusPollInterval = 2 * time.Second

type healthMsg struct {
	health *server.HealthResponse
	err    error
}

type tickMsg time.Time

// statusModel polls a running daemon's health endpoint and renders the pool
// counters as a live dashboard.
type statusModel struct {
	url      string
	client   *http.Client
	health   *server.HealthResponse
	err      error
	fetched  time.Time
	quitting bool
}

// NewStatusModel creates the dashboard model for the daemon at baseURL.
func NewStatusModel(baseURL string) statusModel {
	return statusModel{
		url:    strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// RunStatus runs the dashboard until the user quits.
func RunStatus(baseURL string) error {
	p := tea.NewProgram(NewStatusModel(baseURL))
	_, err := p.Run()

	return err
}

// Init starts the first fetch and the poll ticker.
func (m statusModel) Init() tea.Cmd {
	return tea.Batch(m.fetch, statusTick())
}

func statusTick() tea.Cmd {
	return tea.Tick(statusPollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetch grabs one health snapshot. A 503 still carries a decodable body
// while the daemon drains.
func (m statusModel) fetch() tea.Msg {
	resp, err := m.client.Get(m.url + "/health")
	if err != nil {
		return healthMsg{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return healthMsg{err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var health server.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return healthMsg{err: fmt.Errorf("decoding health: %w", err)}
	}

	return healthMsg{health: &health}
}

// Update handles key presses, poll ticks and fetch results.
func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true

			return m, tea.Quit
		case "r":
			return m, m.fetch
		}
	case tickMsg:
		return m, tea.Batch(m.fetch, statusTick())
	case healthMsg:
		m.health = msg.health
		m.err = msg.err
		m.fetched = time.Now()
	}

	return m, nil
}

// View renders the current snapshot.
func (m statusModel) View() string {
	if m.quitting {
		return ""
	}

	s := fmt.Sprintf("kokorod status @ %s\n", m.url)
	s += strings.Repeat("=", 60) + "\n\n"

	switch {
	case m.err != nil:
		s += fmt.Sprintf("unreachable: %v\n", m.err)
	case m.health == nil:
		s += "fetching...\n"
	default:
		h := m.health
		s += fmt.Sprintf("Status: %s   Backend: %s   Uptime: %s\n", h.Status, h.Backend, h.Uptime)
		s += fmt.Sprintf("Requests: %d   Cache hits: %d\n\n", h.Requests, h.CacheHits)

		s += fmt.Sprintf("%-6s %6s %6s %6s %6s %9s %10s\n",
			"Lang", "Idle", "Busy", "Init", "Wait", "Max", "Circuit")
		s += strings.Repeat("-", 60) + "\n"

		langs := make([]string, 0, len(h.Pools))
		for lang := range h.Pools {
			langs = append(langs, lang)
		}
		sort.Strings(langs)

		for _, lang := range langs {
			p := h.Pools[lang]
			s += fmt.Sprintf("%-6s %6d %6d %6d %6d %9d %10s\n",
				lang, p.Idle, p.Leased, p.Initializing, p.Waiting, p.MaxSize, p.Circuit)
		}
		s += fmt.Sprintf("\nupdated %s\n", m.fetched.Format("15:04:05"))
	}

	s += "\nr: refresh   q or Ctrl+C: quit\n"

	return s
}
