package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the console.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Tab        key.Binding
	Dashboard  key.Binding
	Products   key.Binding
	Categories key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	Refresh    key.Binding
	Delete     key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	Report     key.Binding
	Debug      key.Binding
	Reconnect  key.Binding
	Notify     key.Binding
	Logout     key.Binding
	Escape     key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next screen"),
		),
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "orders"),
		),
		Products: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "products"),
		),
		Categories: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "categories"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right", "l"),
			key.WithHelp("n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "left", "h"),
			key.WithHelp("p", "prev page"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "refresh"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "delete"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "no"),
		),
		Report: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "report"),
		),
		Debug: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "event log"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reconnect"),
		),
		Notify: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "notifications"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Up, k.Down, k.Report, k.Debug, k.Logout, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dashboard, k.Products, k.Categories, k.Tab},
		{k.Up, k.Down, k.NextPage, k.PrevPage, k.Refresh, k.Delete},
		{k.Report, k.Debug, k.Reconnect, k.Notify},
		{k.Logout, k.Quit},
	}
}

// catalogHelp is the footer for listing screens.
func (k KeyMap) catalogHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Up, k.Down, k.PrevPage, k.NextPage, k.Refresh, k.Delete, k.Quit}
}
