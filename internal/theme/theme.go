// Package theme provides the Lip Gloss color palette and reusable styles
// for the admin console. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Brand colors.
var (
	ColorBrand  = lipgloss.Color("#f97316")
	ColorAccent = lipgloss.Color("#fbbf24")
)

// Order status colors.
var (
	ColorPending   = lipgloss.Color("#d97706")
	ColorDelivered = lipgloss.Color("#16a34a")
	ColorCancelled = lipgloss.Color("#dc2626")
	ColorPreparing = lipgloss.Color("#2563eb")
	ColorDefault   = lipgloss.Color("#9ca3af")
)

// Payment colors.
var (
	ColorPaid   = lipgloss.Color("#22c55e")
	ColorUnpaid = lipgloss.Color("#f59e0b")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorInfo    = lipgloss.Color("#3b82f6")
)

// StatusColor returns the color for an order status.
func StatusColor(status string) lipgloss.Color {
	switch strings.ToLower(status) {
	case "pending":
		return ColorPending
	case "delivered", "completed":
		return ColorDelivered
	case "cancelled", "canceled":
		return ColorCancelled
	case "preparing", "confirmed", "out for delivery":
		return ColorPreparing
	default:
		return ColorDefault
	}
}

// PaymentColor returns the color for a payment status.
func PaymentColor(status string) lipgloss.Color {
	if strings.EqualFold(status, "paid") {
		return ColorPaid
	}
	return ColorUnpaid
}

// StatusGlyph returns a glyph for an order status.
func StatusGlyph(status string) string {
	switch strings.ToLower(status) {
	case "pending":
		return "◌"
	case "delivered", "completed":
		return "✓"
	case "cancelled", "canceled":
		return "✗"
	case "preparing", "confirmed", "out for delivery":
		return "●"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBrand)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
		Foreground(ColorDanger)
)

// Panel returns the shared bordered panel used by overlays.
func Panel(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(ColorBorder)
}
