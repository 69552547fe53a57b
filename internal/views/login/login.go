// Package login renders the admin sign-in form.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/theme"
)

// ErrRequired is shown when a field is blank.
const ErrRequired = "All fields are required."

// SubmitMsg is emitted when the form is submitted with both fields filled.
type SubmitMsg struct {
	Credentials client.Credentials
}

const (
	fieldIdentifier = iota
	fieldPassword
)

// Model is the sign-in form.
type Model struct {
	Width int

	inputs  []textinput.Model
	focus   int
	message string
	isError bool
	busy    bool
}

// New creates an empty form focused on the identifier field.
func New() Model {
	id := textinput.New()
	id.Placeholder = "you@example.com"
	id.Prompt = "Email or username: "
	id.CharLimit = 128
	id.Focus()

	pw := textinput.New()
	pw.Placeholder = "••••••"
	pw.Prompt = "Password:          "
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.CharLimit = 128

	return Model{inputs: []textinput.Model{id, pw}}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetBusy marks a login call in flight; input is ignored until it finishes.
func (m *Model) SetBusy(busy bool) {
	m.busy = busy
	if busy {
		m.message, m.isError = "Signing in...", false
	}
}

// Busy reports whether a login call is in flight.
func (m Model) Busy() bool { return m.busy }

// SetError shows a failure message and clears the password.
func (m *Model) SetError(msg string) {
	m.busy = false
	m.message, m.isError = msg, true
	m.inputs[fieldPassword].SetValue("")
	m.setFocus(fieldPassword)
}

// Reset clears the form.
func (m *Model) Reset() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.busy = false
	m.message, m.isError = "", false
	m.setFocus(fieldIdentifier)
}

// Message returns the current status line.
func (m Model) Message() string { return m.message }

func (m *Model) setFocus(i int) {
	m.focus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

// Update handles input. Enter on the identifier moves to the password;
// enter on the password submits.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "down", "shift+tab", "up":
			m.setFocus((m.focus + 1) % len(m.inputs))
			return m, nil
		case "enter":
			if m.focus == fieldIdentifier {
				m.setFocus(fieldPassword)
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	id := strings.TrimSpace(m.inputs[fieldIdentifier].Value())
	pw := m.inputs[fieldPassword].Value()
	if id == "" || strings.TrimSpace(pw) == "" {
		m.message, m.isError = ErrRequired, true
		return m, nil
	}
	creds := client.Credentials{Identifier: id, Secret: pw}
	return m, func() tea.Msg { return SubmitMsg{Credentials: creds} }
}

// View renders the form.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	inner := width - 8
	if inner > 60 {
		inner = 60
	}

	lines := []string{
		theme.StyleTitle.Render("GK Store · Admin Login"),
		"",
		m.inputs[fieldIdentifier].View(),
		m.inputs[fieldPassword].View(),
		"",
	}
	if m.message != "" {
		style := lipgloss.NewStyle().Foreground(theme.ColorHealthy)
		if m.isError {
			style = theme.StyleError
		}
		lines = append(lines, style.Render(m.message), "")
	}
	lines = append(lines, theme.StyleDimmed.Render("tab:next field  enter:sign in  ctrl+c:quit"))

	return theme.Panel(inner).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
