package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/coachkit/traincue/internal/model"
)

// Styles for CLI output.
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#10B981") // Green
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorWarning   = lipgloss.Color("#F59E0B") // Yellow
	colorError     = lipgloss.Color("#EF4444") // Red

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleActivity = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleTask = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleNote = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorMuted)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	if c.IsColorEnabled() {
		c.Println(styleTitle.Render(text))
	} else {
		c.Println(text)
	}
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	if c.IsColorEnabled() {
		c.Println(styleSuccess.Render("✓ " + text))
	} else {
		c.Println("✓ " + text)
	}
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	if c.IsColorEnabled() {
		c.Println(styleWarning.Render("⚠ " + text))
	} else {
		c.Println("⚠ " + text)
	}
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	if c.IsColorEnabled() {
		c.Println(styleError.Render("✗ " + text))
	} else {
		c.Println("✗ " + text)
	}
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	if c.IsColorEnabled() {
		c.Println(styleMuted.Render(text))
	} else {
		c.Println(text)
	}
}

// ActivityName formats an activity title.
func (c *CLIFormatter) ActivityName(name string) string {
	if c.IsColorEnabled() {
		return styleActivity.Render(name)
	}
	return name
}

// TaskName formats a task title.
func (c *CLIFormatter) TaskName(name string) string {
	if c.IsColorEnabled() {
		return styleTask.Render(name)
	}
	return name
}

// Note formats a note.
func (c *CLIFormatter) Note(text string) string {
	if c.IsColorEnabled() {
		return styleNote.Render(text)
	}
	return text
}

// PrintActivity prints one activity with its schedule line.
func (c *CLIFormatter) PrintActivity(a *model.Activity) {
	marker := ""
	if a.External {
		marker = " (calendar)"
	}
	c.Printf("%s  %s%s\n", a.ShortID(), c.ActivityName(a.Title), marker)
	c.Printf("   %s %s, %s\n", a.Date, a.Start, FormatMinutes(a.DurationMin))
}

// PrintTask prints one task with its reminder offsets.
func (c *CLIFormatter) PrintTask(t *model.Task) {
	status := " "
	if t.Completed {
		status = "x"
	}
	c.Printf("[%s] %s  %s\n", status, t.ShortID(), c.TaskName(t.Title))

	var reminders []string
	if t.RemindBeforeMin > 0 {
		reminders = append(reminders, fmt.Sprintf("%s before start", FormatMinutes(t.RemindBeforeMin)))
	}
	if t.RemindAfterMin > 0 {
		reminders = append(reminders, fmt.Sprintf("%s after end", FormatMinutes(t.RemindAfterMin)))
	}
	if len(reminders) > 0 {
		c.Printf("     remind: %s\n", strings.Join(reminders, ", "))
	}
	if t.Note != "" {
		c.Printf("     %s\n", c.Note(t.Note))
	}
}

// PrintStats prints a queue stats snapshot.
func (c *CLIFormatter) PrintStats(stats model.QueueStats, now time.Time) {
	c.Title("Reminder queue")
	c.Printf("  Scheduled:     %d\n", stats.SinkScheduled)
	c.Printf("  Store entries: %d\n", stats.StoreEntries)
	if stats.Orphans > 0 {
		c.Warning(fmt.Sprintf("  Orphans:       %d (run 'traincue reconcile')", stats.Orphans))
	} else {
		c.Printf("  Orphans:       0\n")
	}
	if stats.LastRefreshAt.IsZero() {
		c.Muted("  Last refresh:  never")
	} else {
		c.Printf("  Last refresh:  %s\n", FormatTime(stats.LastRefreshAt))
	}

	if len(stats.NextFireTimes) > 0 {
		c.Println()
		c.Println("  Upcoming:")
		for _, fireAt := range stats.NextFireTimes {
			c.Printf("    %s  (%s)\n", FormatTime(fireAt), FormatRelative(fireAt, now))
		}
	}
}

// Table helpers for CLI output.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table, truncated to the terminal width.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	maxWidth := c.TerminalWidth(120)

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	var headerLine strings.Builder
	for i, h := range headers {
		headerLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], h))
	}
	if c.IsColorEnabled() {
		c.Println(styleBold.Render(truncateLine(headerLine.String(), maxWidth)))
	} else {
		c.Println(truncateLine(headerLine.String(), maxWidth))
	}

	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(truncateLine(sep.String(), maxWidth))

	for _, row := range rows {
		var rowLine strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				rowLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], col))
			}
		}
		c.Println(truncateLine(rowLine.String(), maxWidth))
	}
}

// truncateLine cuts a line to at most width runes.
func truncateLine(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return strings.TrimRight(s, " ")
	}
	return strings.TrimRight(string(runes[:width]), " ")
}
