// Package status is the terminal view of a running agent, fed by the event bus.
package status

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/keymap"
	"github.com/llehouerou/lastcord/internal/ui/styles"
)

const (
	maxErrors       = 3
	refreshInterval = time.Second
)

type refreshMsg time.Time

// closedMsg is sent when the subscription ends.
type closedMsg struct{}

type timedError struct {
	events.ErrorEvent
	At time.Time
}

// Model renders the state of the agent.
type Model struct {
	sub   *events.Subscription
	now   func() time.Time
	title string

	width     int
	spinner   spinner.Model
	keys      keymap.Map
	showHelp  bool
	hideRules bool

	track     *events.Track
	startedAt time.Time

	lastScrobble   *events.ScrobbleResult
	lastScrobbleAt time.Time
	scrobbles      int

	rules        []events.RuleState
	rulesCount   int
	rulesEnabled int

	gateway   events.GatewayChange
	presence  *events.PresenceChange
	presences int
	dropped   int

	errors []timedError
	closed bool
}

// New creates a view reading from sub.
func New(sub *events.Subscription, title string) Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = styles.T().S().Warning
	return Model{
		sub:     sub,
		now:     time.Now,
		title:   title,
		width:   80,
		spinner: s,
		keys:    keymap.Status,
		gateway: events.GatewayChange{Current: "disconnected"},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.sub), m.spinner.Tick, refresh())
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// waitForEvent blocks until the next event on any channel of sub.
func waitForEvent(sub *events.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-sub.NowPlaying:
			return e
		case e := <-sub.Scrobbled:
			return e
		case e := <-sub.RuleStatus:
			return e
		case e := <-sub.Rules:
			return e
		case e := <-sub.Gateway:
			return e
		case e := <-sub.Presence:
			return e
		case e := <-sub.Error:
			return e
		case <-sub.Done:
			return closedMsg{}
		}
	}
}
