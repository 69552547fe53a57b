// Package debug provides the scrollable console event log overlay.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gkstorejd-max/gkstore-admin/internal/theme"
)

// MaxEntries caps the log.
const MaxEntries = 200

// Entry kinds.
const (
	KindRealtime = "rt"
	KindSession  = "auth"
	KindNav      = "nav"
	KindNotify   = "ntfy"
	KindError    = "err"
)

// Entry is a single log line.
type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// Model holds the log and its scroll position.
type Model struct {
	Entries []Entry
	Offset  int // lines scrolled up from the bottom

	now func() time.Time
}

// New creates an empty log.
func New() Model {
	return Model{now: time.Now}
}

// Add appends an entry, drops the oldest past MaxEntries and scrolls to the
// bottom.
func (m *Model) Add(kind, format string, args ...any) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	m.Entries = append(m.Entries, Entry{Time: now(), Kind: kind, Message: msg})
	if len(m.Entries) > MaxEntries {
		m.Entries = m.Entries[len(m.Entries)-MaxEntries:]
	}
	m.Offset = 0
}

// ScrollUp moves the viewport towards older entries.
func (m *Model) ScrollUp(n int) {
	m.Offset = min(m.Offset+n, max(len(m.Entries)-1, 0))
}

// ScrollDown moves the viewport towards newer entries.
func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// View renders the log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	visible := max(height-6, 3)

	title := theme.StyleHeader.Render(" EVENT LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(m.Entries)))

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  No events recorded yet.")
		return theme.Panel(innerW).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	end := max(len(m.Entries)-m.Offset, 0)
	start := max(end-visible, 0)

	lines := make([]string, 0, end-start)
	for _, e := range m.Entries[start:end] {
		ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(5).Render(e.Kind)
		msg := e.Message
		if r := []rune(msg); innerW-20 > 3 && len(r) > innerW-20 {
			msg = string(r[:innerW-23]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ts, kind, msg))
	}

	more := ""
	if m.Offset > 0 {
		more = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), more, help)
	return theme.Panel(innerW).Render(content)
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case KindRealtime:
		return theme.ColorInfo
	case KindError:
		return theme.ColorDanger
	case KindNav:
		return theme.ColorAccent
	case KindSession:
		return theme.ColorHealthy
	case KindNotify:
		return theme.ColorBrand
	default:
		return theme.ColorDimmed
	}
}
