package status

import (
	"slices"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/keymap"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		return m, refresh()

	case closedMsg:
		m.closed = true
		return m, tea.Quit
	}

	if m.apply(msg) {
		return m, waitForEvent(m.sub)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.keys.Lookup(msg) {
	case keymap.ActionQuit:
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
	case keymap.ActionClearErrors:
		m.errors = nil
	case keymap.ActionToggleRules:
		m.hideRules = !m.hideRules
	}
	return m, nil
}

// apply folds a bus event into the model and reports whether msg was one.
func (m *Model) apply(msg tea.Msg) bool {
	switch e := msg.(type) {
	case events.NowPlayingChange:
		m.track = e.Track
		m.startedAt = e.StartedAt

	case events.ScrobbleResult:
		m.lastScrobble = &e
		m.lastScrobbleAt = m.now()
		if e.Err == nil {
			m.scrobbles++
		}

	case events.RuleStatusChange:
		m.rules = slices.Clone(e.Rules)

	case events.RulesChange:
		m.rulesCount = e.Count
		m.rulesEnabled = e.Enabled

	case events.GatewayChange:
		m.gateway = e

	case events.PresenceChange:
		m.presence = &e
		if e.Sent {
			m.presences++
		} else {
			m.dropped++
		}

	case events.ErrorEvent:
		m.errors = append(m.errors, timedError{ErrorEvent: e, At: m.now()})
		if len(m.errors) > maxErrors {
			m.errors = m.errors[len(m.errors)-maxErrors:]
		}

	default:
		return false
	}
	return true
}
