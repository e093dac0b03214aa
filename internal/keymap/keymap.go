// Package keymap holds the key bindings of the status view.
package keymap

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Action is what a key press asks the view to do.
type Action string

const (
	ActionQuit        Action = "quit"
	ActionHelp        Action = "help"
	ActionClearErrors Action = "clear_errors"
	ActionToggleRules Action = "toggle_rules"
)

// Binding ties an action to its keys. Short is the footer label; a binding
// without one only shows up in the full help.
type Binding struct {
	Action      Action
	Keys        key.Binding
	Description string
	Short       string
}

func bind(a Action, desc, short string, keys ...string) Binding {
	return Binding{
		Action:      a,
		Keys:        key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], short)),
		Description: desc,
		Short:       short,
	}
}

// Status is the key map of the status view.
var Status = Map{
	bind(ActionQuit, "Quit (stops the agent)", "quit", "q", "ctrl+c", "esc"),
	bind(ActionHelp, "Show key bindings", "help", "?"),
	bind(ActionClearErrors, "Clear the error list", "clear", "c"),
	bind(ActionToggleRules, "Show or hide the rule list", "rules", "r"),
}

// Map is an ordered set of bindings. The first binding matching a key wins.
type Map []Binding

// Lookup returns the action bound to msg, or "" when none is.
func (m Map) Lookup(msg tea.KeyMsg) Action {
	for _, b := range m {
		if key.Matches(msg, b.Keys) {
			return b.Action
		}
	}
	return ""
}

// Hints renders the footer line.
func (m Map) Hints() string {
	var sb strings.Builder
	for _, b := range m {
		h := b.Keys.Help()
		if b.Short == "" || !b.Keys.Enabled() {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(h.Key + ": " + h.Desc)
	}
	return sb.String()
}

// Help renders one line per binding listing all of its keys, descriptions
// aligned on a column.
func (m Map) Help() []string {
	keys := make([]string, len(m))
	width := 0
	for i, b := range m {
		keys[i] = strings.Join(b.Keys.Keys(), ", ")
		width = max(width, len(keys[i]))
	}
	lines := make([]string, len(m))
	for i, b := range m {
		lines[i] = keys[i] + strings.Repeat(" ", width-len(keys[i])+2) + b.Description
	}
	return lines
}
