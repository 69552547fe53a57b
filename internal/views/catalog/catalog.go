// Package catalog renders paginated product and category listings.
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/orders"
	"github.com/gkstorejd-max/gkstore-admin/internal/theme"
)

// Kind selects what the listing shows.
type Kind int

const (
	Products Kind = iota
	Categories
)

func (k Kind) String() string {
	if k == Categories {
		return "Categories"
	}
	return "Products"
}

// PageSize is the number of rows requested per page.
const PageSize = 10

// Item is the id and name of a row.
type Item struct {
	ID   string
	Name string
}

// Model is a listing screen.
type Model struct {
	Kind   Kind
	Width  int
	Height int

	table   table.Model
	items   []Item
	page    client.Pagination
	want    int
	loading bool
	err     string
	notice  string
	confirm *Item
}

// New creates an empty listing of kind.
func New(kind Kind) Model {
	t := table.New(
		table.WithColumns(columns(kind)),
		table.WithFocused(true),
		table.WithHeight(PageSize),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorBg).
		Background(theme.ColorBrand).
		Bold(true)
	t.SetStyles(styles)

	return Model{Kind: kind, table: t, want: 1}
}

func columns(kind Kind) []table.Column {
	if kind == Categories {
		return []table.Column{
			{Title: "Name", Width: 22},
			{Title: "Type", Width: 10},
			{Title: "Parent", Width: 16},
			{Title: "Order", Width: 6},
			{Title: "Active", Width: 7},
		}
	}
	return []table.Column{
		{Title: "Name", Width: 22},
		{Title: "Category", Width: 14},
		{Title: "Price", Width: 11},
		{Title: "Variants", Width: 9},
		{Title: "Status", Width: 10},
		{Title: "Tags", Width: 14},
	}
}

// Params returns the query for the page the listing wants next.
func (m Model) Params() client.ListParams {
	p := client.ListParams{Page: m.want, Limit: PageSize}
	if m.Kind == Categories {
		p.SortField = "displayOrder"
	}
	return p
}

// SetLoading marks a fetch in flight.
func (m *Model) SetLoading() {
	m.loading = true
	m.err = ""
}

// Loading reports whether a fetch is in flight.
func (m Model) Loading() bool { return m.loading }

// SetProducts fills the table from a product page.
func (m *Model) SetProducts(p *client.ProductPage) {
	rows := make([]table.Row, 0, len(p.Products))
	items := make([]Item, 0, len(p.Products))
	for _, pr := range p.Products {
		category := "N/A"
		if pr.Category != nil && pr.Category.Name != "" {
			category = pr.Category.Name
		}
		rows = append(rows, table.Row{
			pr.Name,
			category,
			orders.Rupees(pr.Price),
			strconv.Itoa(len(pr.Variants)),
			orDash(pr.Status),
			productTags(pr),
		})
		items = append(items, Item{ID: pr.ID, Name: pr.Name})
	}
	m.fill(rows, items, p.Pagination)
}

// SetCategories fills the table from a category page.
func (m *Model) SetCategories(p *client.CategoryPage) {
	rows := make([]table.Row, 0, len(p.Categories))
	items := make([]Item, 0, len(p.Categories))
	for _, c := range p.Categories {
		parent := "-"
		if c.ParentCategory != nil && c.ParentCategory.Name != "" {
			parent = c.ParentCategory.Name
		}
		active := "no"
		if c.IsActive {
			active = "yes"
		}
		rows = append(rows, table.Row{
			c.Name,
			orDash(c.Type),
			parent,
			strconv.Itoa(c.DisplayOrder),
			active,
		})
		items = append(items, Item{ID: c.ID, Name: c.Name})
	}
	m.fill(rows, items, p.Pagination)
}

func (m *Model) fill(rows []table.Row, items []Item, p client.Pagination) {
	m.loading = false
	m.err = ""
	m.items = items
	m.page = p
	m.want = max(p.Page, 1)
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// SetError shows a failed fetch or delete.
func (m *Model) SetError(err error) {
	m.loading = false
	m.confirm = nil
	m.err = err.Error()
}

// SetNotice shows a one-line confirmation such as a completed delete.
func (m *Model) SetNotice(s string) {
	m.notice = s
}

// Items returns the rows currently shown.
func (m Model) Items() []Item { return m.items }

// Pagination returns the last page metadata.
func (m Model) Pagination() client.Pagination { return m.page }

// Selected returns the highlighted row.
func (m Model) Selected() (Item, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.items) {
		return Item{}, false
	}
	return m.items[i], true
}

// NextPage requests the following page. It reports false on the last page.
func (m *Model) NextPage() bool {
	if m.page.TotalPages == 0 || m.want >= m.page.TotalPages {
		return false
	}
	m.want++
	return true
}

// PrevPage requests the preceding page. It reports false on the first page.
func (m *Model) PrevPage() bool {
	if m.want <= 1 {
		return false
	}
	m.want--
	return true
}

// AskDelete arms a delete confirmation for the selected row.
func (m *Model) AskDelete() bool {
	it, ok := m.Selected()
	if !ok {
		return false
	}
	m.confirm = &it
	m.notice = ""
	return true
}

// Confirming returns the row awaiting delete confirmation.
func (m Model) Confirming() (Item, bool) {
	if m.confirm == nil {
		return Item{}, false
	}
	return *m.confirm, true
}

// CancelDelete drops a pending confirmation.
func (m *Model) CancelDelete() { m.confirm = nil }

// Update forwards navigation keys to the table.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the listing.
func (m Model) View() string {
	title := theme.StyleHeader.Render("  " + m.Kind.String())
	if m.page.TotalPages > 0 {
		title += theme.StyleDimmed.Render(fmt.Sprintf("  page %d/%d · %d total", m.page.Page, m.page.TotalPages, m.page.Total))
	}

	lines := []string{title}
	switch {
	case m.loading && len(m.items) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  Loading..."))
	case len(m.items) == 0 && m.err == "":
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf("  No %s found.", strings.ToLower(m.Kind.String()))))
	default:
		lines = append(lines, theme.StyleBorder.Render(m.table.View()))
	}

	switch {
	case m.confirm != nil:
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(
			fmt.Sprintf("  Delete %q? y:confirm  n:cancel", m.confirm.Name)))
	case m.err != "":
		lines = append(lines, theme.StyleError.Render("  "+m.err))
	case m.notice != "":
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("  "+m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func productTags(p client.Product) string {
	var tags []string
	if p.IsFeatured {
		tags = append(tags, "featured")
	}
	if p.IsHotProduct {
		tags = append(tags, "hot")
	}
	if p.IsBestSeller {
		tags = append(tags, "best")
	}
	return orDash(strings.Join(tags, ","))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
