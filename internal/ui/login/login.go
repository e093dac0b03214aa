// Package login prompts for credentials in the terminal.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/lastcord/internal/ui/styles"
)

const keyEsc = "esc"

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.T().Primary)
}

func labelStyle() lipgloss.Style {
	return styles.T().S().Base
}

func hintStyle() lipgloss.Style {
	return styles.T().S().Subtle
}

func errorStyle() lipgloss.Style {
	return styles.T().S().Error
}

// Field is one prompted value.
type Field struct {
	Label       string
	Placeholder string
	Secret      bool
}

// Model asks for each field in turn.
type Model struct {
	title    string
	fields   []Field
	inputs   []textinput.Model
	focus    int
	errMsg   string
	done     bool
	canceled bool
}

// New creates a prompt for fields.
func New(title string, fields ...Field) Model {
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Placeholder = f.Placeholder
		ti.CharLimit = 256
		ti.Width = 40
		ti.Prompt = "> "
		if f.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}
	if len(inputs) > 0 {
		inputs[0].Focus()
	}
	return Model{title: title, fields: fields, inputs: inputs}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case keyEsc, "ctrl+c":
			m.canceled = true
			return m, tea.Quit
		case "shift+tab", "up":
			return m.move(-1), nil
		case "tab", "down":
			return m.move(1), nil
		case "enter":
			if strings.TrimSpace(m.inputs[m.focus].Value()) == "" {
				m.errMsg = m.fields[m.focus].Label + " is required"
				return m, nil
			}
			m.errMsg = ""
			if m.focus == len(m.inputs)-1 {
				m.done = true
				return m, tea.Quit
			}
			return m.move(1), nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) move(delta int) Model {
	next := m.focus + delta
	if next < 0 || next >= len(m.inputs) {
		return m
	}
	m.inputs[m.focus].Blur()
	m.focus = next
	m.inputs[m.focus].Focus()
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done || m.canceled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle().Render(m.title))
	b.WriteString("\n\n")
	for i, f := range m.fields {
		b.WriteString(labelStyle().Render(f.Label))
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle().Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle().Render("enter: next/submit  tab: switch field  esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

// Canceled reports whether the user gave up.
func (m Model) Canceled() bool {
	return m.canceled
}

// Values returns the entered values in field order, or nil if the prompt
// was not completed.
func (m Model) Values() []string {
	if !m.done {
		return nil
	}
	out := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}
