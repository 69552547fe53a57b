// Package dashboard provides the stats row and live order list of the
// admin console.
package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/orders"
	"github.com/gkstorejd-max/gkstore-admin/internal/theme"
)

// Model holds the dashboard state.
type Model struct {
	Width  int
	Height int

	// Loading is true until the first baseline arrives.
	Loading bool

	orders   []client.Order
	summary  orders.Summary
	selected int
	offset   int
}

// New creates a dashboard model waiting for its first baseline.
func New() Model {
	return Model{Loading: true}
}

// SetOrders replaces the visible list. The selection follows the list
// position, clamped to the new length.
func (m *Model) SetOrders(list []client.Order) {
	m.orders = list
	m.summary = orders.Summarize(list)
	m.Loading = false
	m.clamp()
}

// Orders returns the list being shown.
func (m Model) Orders() []client.Order { return m.orders }

// Selected returns the highlighted order, if any.
func (m Model) Selected() (client.Order, bool) {
	if m.selected < 0 || m.selected >= len(m.orders) {
		return client.Order{}, false
	}
	return m.orders[m.selected], true
}

// Cursor returns the highlighted index.
func (m Model) Cursor() int { return m.selected }

// Next moves the selection down, wrapping.
func (m *Model) Next() {
	if len(m.orders) > 0 {
		m.selected = (m.selected + 1) % len(m.orders)
		m.clamp()
	}
}

// Prev moves the selection up, wrapping.
func (m *Model) Prev() {
	if len(m.orders) > 0 {
		m.selected = (m.selected - 1 + len(m.orders)) % len(m.orders)
		m.clamp()
	}
}

func (m *Model) clamp() {
	if m.selected >= len(m.orders) {
		m.selected = len(m.orders) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	rows := m.rows()
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// rows is the number of order lines that fit.
func (m Model) rows() int {
	n := m.Height - 10
	if n < 3 {
		n = 3
	}
	return n
}

// View renders the stats row, the order list and the selected order.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	sections := []string{
		m.renderStatsRow(width),
		m.renderOrders(width),
	}
	if detail := m.renderDetail(); detail != "" {
		sections = append(sections, detail)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatsRow(width int) string {
	statStyle := lipgloss.NewStyle().Padding(0, 1)

	stats := []string{
		statStyle.Foreground(theme.ColorBright).Render(
			fmt.Sprintf("Orders: %d", m.summary.Count)),
		statStyle.Foreground(theme.ColorAccent).Render(
			fmt.Sprintf("Revenue: %s", orders.Rupees(m.summary.Revenue))),
		statStyle.Foreground(theme.ColorPaid).Render(
			fmt.Sprintf("Paid: %d", m.summary.Paid)),
	}

	statuses := make([]string, 0, len(m.summary.ByStatus))
	for s := range m.summary.ByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		stats = append(stats, statStyle.Foreground(theme.StatusColor(s)).Render(
			fmt.Sprintf("%s: %d", s, m.summary.ByStatus[s])))
	}

	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) renderOrders(width int) string {
	header := theme.StyleHeader.Render("  Today's Orders")

	switch {
	case m.Loading:
		return lipgloss.JoinVertical(lipgloss.Left, header, theme.StyleDimmed.Render("  Loading orders..."))
	case len(m.orders) == 0:
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			theme.StyleDimmed.Render("  No orders yet today."),
			theme.StyleDimmed.Render("  New orders will appear here automatically."),
		)
	}

	colTime := 6
	colName := 22
	colTotal := 12
	colPay := 14
	colStatus := 12

	dimStyle := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	tableHeader := fmt.Sprintf("    %-*s %-*s %*s  %-*s %-*s %s",
		colTime, "Time",
		colName, "Customer",
		colTotal, "Total",
		colPay, "Payment",
		colStatus, "Status",
		"Order",
	)
	lines := []string{
		header,
		dimStyle.Render(tableHeader),
		dimStyle.Render("  " + strings.Repeat("─", min(width-4, colTime+colName+colTotal+colPay+colStatus+24))),
	}

	end := min(len(m.orders), m.offset+m.rows())
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderLine(i, colTime, colName, colTotal, colPay, colStatus))
	}
	if hidden := len(m.orders) - end; hidden > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("  ↓ %d more", hidden)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderLine(i, colTime, colName, colTotal, colPay, colStatus int) string {
	o := m.orders[i]
	prefix := "  "
	if i == m.selected {
		prefix = "> "
	}

	at := "--:--"
	if !o.PlacedAt.IsZero() {
		at = o.PlacedAt.Local().Format("15:04")
	}

	name := o.CustomerName()
	if len([]rune(name)) > colName-1 {
		name = string([]rune(name)[:colName-2]) + "…"
	}
	nameStyle := lipgloss.NewStyle().Width(colName)
	if i == m.selected {
		nameStyle = nameStyle.Inherit(theme.StyleSelected)
	}

	pay := o.PaymentStatus
	if o.PaymentMethod != "" {
		pay = o.PaymentMethod + " " + pay
	}
	status := o.Status()

	glyph := lipgloss.NewStyle().Foreground(theme.StatusColor(status)).Render(theme.StatusGlyph(status))
	return fmt.Sprintf("%s%s %s %s %s  %s %s %s",
		prefix,
		glyph,
		lipgloss.NewStyle().Width(colTime).Render(at),
		nameStyle.Render(name),
		lipgloss.NewStyle().Width(colTotal).Align(lipgloss.Right).Foreground(theme.ColorBright).Render(orders.Rupees(o.TotalAmount)),
		lipgloss.NewStyle().Width(colPay).Foreground(theme.PaymentColor(o.PaymentStatus)).Render(strings.TrimSpace(pay)),
		lipgloss.NewStyle().Width(colStatus).Foreground(theme.StatusColor(status)).Render(status),
		theme.StyleDimmed.Render(orders.ShortID(o.ID)),
	)
}

func (m Model) renderDetail() string {
	o, ok := m.Selected()
	if !ok {
		return ""
	}
	var items []string
	for _, it := range o.Items {
		items = append(items, fmt.Sprintf("%s × %d", it.Label(), it.Quantity))
	}
	if len(items) == 0 {
		items = append(items, "N/A")
	}
	return theme.StyleDimmed.Render("  Items: " + strings.Join(items, ", "))
}
