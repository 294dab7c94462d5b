package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/coachkit/traincue/internal/engine"
	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/output"
)

// watchInterval is how often the watch view re-reads queue stats.
const watchInterval = 5 * time.Second

type tickMsg time.Time

type statsMsg struct {
	stats model.QueueStats
	err   error
}

// WatchModel is the bubbletea model for the live queue view. It polls the
// engine for a fresh stats snapshot on a fixed interval and renders the
// same numbers the plain stats command prints.
type WatchModel struct {
	engine *engine.Engine

	stats     model.QueueStats
	err       error
	loaded    bool
	updatedAt time.Time
	width     int
}

// NewWatchModel creates a watch model over the given engine.
func NewWatchModel(eng *engine.Engine) *WatchModel {
	return &WatchModel{engine: eng}
}

// Init starts the tick loop and kicks off the first stats load.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.loadStats(), tickCmd())
}

// Update handles messages.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.loadStats()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.loadStats(), tickCmd())

	case statsMsg:
		m.loaded = true
		m.err = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.updatedAt = time.Now()
		}
	}

	return m, nil
}

// View renders the queue snapshot.
func (m *WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Reminder Queue"))
	b.WriteString("\n")

	if !m.loaded {
		b.WriteString(StyleSubtitle.Render("Loading..."))
		b.WriteString("\n")
		return b.String()
	}

	if m.err != nil {
		b.WriteString(StyleError.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(m.helpView())
		return b.String()
	}

	b.WriteString(StyleQueueBox.Render(m.queueView()))
	b.WriteString("\n")

	if len(m.stats.NextFireTimes) > 0 {
		b.WriteString(StyleUpcomingBox.Render(m.upcomingView()))
		b.WriteString("\n")
	}

	b.WriteString(m.helpView())
	return b.String()
}

func (m *WatchModel) queueView() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Scheduled      %s\n", StyleValue.Render(fmt.Sprintf("%d", m.stats.SinkScheduled))))
	b.WriteString(fmt.Sprintf("Store entries  %s\n", StyleValue.Render(fmt.Sprintf("%d", m.stats.StoreEntries))))

	orphans := fmt.Sprintf("%d", m.stats.Orphans)
	if m.stats.Orphans > 0 {
		b.WriteString(fmt.Sprintf("Orphans        %s\n", StyleWarning.Render(orphans)))
	} else {
		b.WriteString(fmt.Sprintf("Orphans        %s\n", StyleOK.Render(orphans)))
	}

	if m.stats.LastRefreshAt.IsZero() {
		b.WriteString(fmt.Sprintf("Last refresh   %s", StyleSubtitle.Render("never")))
	} else {
		b.WriteString(fmt.Sprintf("Last refresh   %s", output.FormatTime(m.stats.LastRefreshAt)))
	}

	return b.String()
}

func (m *WatchModel) upcomingView() string {
	var b strings.Builder

	b.WriteString("Upcoming\n")
	now := time.Now()
	for _, fireAt := range m.stats.NextFireTimes {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			output.FormatTime(fireAt),
			StyleSubtitle.Render(output.FormatRelative(fireAt, now))))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m *WatchModel) helpView() string {
	help := fmt.Sprintf("%s refresh  %s quit",
		StyleHelpKey.Render("r"),
		StyleHelpKey.Render("q"))
	if !m.updatedAt.IsZero() {
		help += StyleSubtitle.Render(fmt.Sprintf("  updated %s", m.updatedAt.Format("15:04:05")))
	}
	return StyleHelp.Render(help)
}

func (m *WatchModel) loadStats() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stats, err := m.engine.Stats(ctx)
		return statsMsg{stats: stats, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(watchInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunWatch runs the live queue view until the user quits.
func RunWatch(eng *engine.Engine) error {
	p := tea.NewProgram(NewWatchModel(eng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
