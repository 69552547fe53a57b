// Package banner renders the transient "new order" banner. The banner slides
// in and out on a critically damped spring.
package banner

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/gkstorejd-max/gkstore-admin/internal/notify"
	"github.com/gkstorejd-max/gkstore-admin/internal/theme"
)

const (
	fps       = 60
	frequency = 7.0
	damping   = 1.0
	epsilon   = 0.01
)

// FrameMsg advances the animation by one frame.
type FrameMsg time.Time

// Model holds the banner state.
type Model struct {
	Width int

	message string
	seq     uint64
	spring  harmonica.Spring
	pos     float64
	vel     float64
	target  float64
	running bool
}

// New creates a hidden banner.
func New() Model {
	return Model{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

// Set applies a dispatcher banner state. Stale states (older Seq) are
// ignored.
func (m *Model) Set(b notify.Banner) tea.Cmd {
	if b.Seq < m.seq {
		return nil
	}
	m.seq = b.Seq
	if b.Visible {
		m.message = b.Message
		m.target = 1
	} else {
		m.target = 0
	}
	return m.start()
}

// Visible reports whether any part of the banner is on screen.
func (m Model) Visible() bool {
	return m.pos > epsilon || m.target > 0
}

// Message returns the last message shown.
func (m Model) Message() string { return m.message }

// Settled reports whether the animation has come to rest.
func (m Model) Settled() bool { return !m.running }

func (m *Model) start() tea.Cmd {
	if m.running || m.settled() {
		return nil
	}
	m.running = true
	return frame()
}

func (m Model) settled() bool {
	return math.Abs(m.pos-m.target) < epsilon && math.Abs(m.vel) < epsilon
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// Update steps the spring on FrameMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); !ok {
		return m, nil
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if m.settled() {
		m.pos, m.vel = m.target, 0
		m.running = false
		return m, nil
	}
	return m, frame()
}

// View renders the banner at its current extent.
func (m Model) View() string {
	if m.pos <= epsilon || m.message == "" {
		return ""
	}
	width := m.Width
	if width < 20 {
		width = 20
	}
	extent := int(math.Round(math.Min(m.pos, 1) * float64(width)))
	if extent < 1 {
		return ""
	}

	text := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBg).
		Background(theme.ColorBrand).
		Padding(0, 1).
		Width(width).
		Render("🔔 " + m.message)

	return lipgloss.NewStyle().MaxWidth(extent).Render(text)
}
