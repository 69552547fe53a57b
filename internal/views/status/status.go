package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/orders"
	"github.com/gkstorejd-max/gkstore-admin/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Width int

	// Live is false while no realtime channel exists (signed out).
	Live       bool
	Conn       client.ConnectionState
	Attempt    int
	User       string
	Orders     int
	Revenue    float64
	Sound      bool
	Permission string
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// SetSummary updates the order counters.
func (m *Model) SetSummary(s orders.Summary) {
	m.Orders = s.Count
	m.Revenue = s.Revenue
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	parts := []string{m.connection()}
	if m.User != "" {
		parts = append(parts, theme.StyleHeader.Render(m.User))
	}
	if m.Live {
		parts = append(parts, fmt.Sprintf("%d orders  %s", m.Orders, orders.Rupees(m.Revenue)))
	}

	var flags []string
	if m.Sound {
		flags = append(flags, lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("♪ sound"))
	} else {
		flags = append(flags, theme.StyleDimmed.Render("♪ locked"))
	}
	if m.Permission != "" {
		flags = append(flags, theme.StyleDimmed.Render("notify: "+m.Permission))
	}
	parts = append(parts, strings.Join(flags, "  "))

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := strings.Join(parts, sep)

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) connection() string {
	if !m.Live {
		return theme.StyleDimmed.Render("○ Offline")
	}
	switch m.Conn {
	case client.StateConnected:
		return lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Live")
	case client.StateReconnecting:
		return lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(fmt.Sprintf("◌ Reconnecting (%d)", m.Attempt))
	case client.StateDisconnected:
		return lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Disconnected")
	default:
		return lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("○ Connecting...")
	}
}
