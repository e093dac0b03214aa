package status

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/lastcord/internal/events"
)

func newTestModel(now time.Time) Model {
	m := New(nil, "lastcord")
	m.now = func() time.Time { return now }
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestModel_NowPlaying(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestModel(now)

	assert.Contains(t, m.View(), "nothing")

	m = update(t, m, events.NowPlayingChange{
		Track:     &events.Track{Artist: "Daft Punk", Title: "Digital Love", Length: 301 * time.Second},
		StartedAt: now.Add(-2 * time.Minute),
	})
	view := m.View()
	assert.Contains(t, view, "Daft Punk - Digital Love (5:01)")
	assert.Contains(t, view, "started 2 minutes ago")

	m = update(t, m, events.NowPlayingChange{})
	assert.Contains(t, m.View(), "nothing")
}

func TestModel_ScrobbleAndPresenceCounters(t *testing.T) {
	m := newTestModel(time.Now())
	track := events.Track{Artist: "A", Title: "B"}

	m = update(t, m, events.ScrobbleResult{Track: track})
	m = update(t, m, events.ScrobbleResult{Track: track, Err: errors.New("503"), Queued: true})
	m = update(t, m, events.PresenceChange{Text: "A - B", Sent: true})
	m = update(t, m, events.PresenceChange{Text: "C - D", Sent: false})

	view := m.View()
	assert.Contains(t, view, "queued")
	assert.Contains(t, view, "1 this session")
	assert.Contains(t, view, "1 sent, 1 dropped")
	assert.Contains(t, view, "C - D")
}

func TestModel_Rules(t *testing.T) {
	m := newTestModel(time.Now())
	assert.Contains(t, m.View(), "no enabled rules")

	m = update(t, m, events.RulesChange{Count: 3, Enabled: 2})
	m = update(t, m, events.RuleStatusChange{Rules: []events.RuleState{
		{RuleID: 1, ProcessName: "foobar2000.exe", Active: true, Artist: "A", Title: "B"},
		{RuleID: 2, ProcessName: "vlc.exe"},
	}})

	view := m.View()
	assert.Contains(t, view, "Rules (2/3 enabled)")
	assert.Contains(t, view, "foobar2000.exe")
	assert.Contains(t, view, "A - B")
	assert.Contains(t, view, "vlc.exe")
}

func TestModel_GatewayBadge(t *testing.T) {
	m := newTestModel(time.Now())
	assert.Contains(t, m.View(), "○ discord")

	m = update(t, m, events.GatewayChange{Previous: "disconnected", Current: "handshaking"})
	assert.Contains(t, m.View(), "discord: handshaking")

	m = update(t, m, events.GatewayChange{Previous: "handshaking", Current: "ready"})
	assert.Contains(t, m.View(), "● discord")

	m = update(t, m, events.GatewayChange{Previous: "ready", Current: "disconnected", Err: errors.New("heartbeat timeout")})
	assert.Contains(t, m.View(), "heartbeat timeout")
}

func TestModel_KeepsLastErrors(t *testing.T) {
	now := time.Now()
	m := newTestModel(now)

	for i := range 5 {
		m = update(t, m, events.ErrorEvent{Operation: "scrobble", Err: errors.New(string(rune('a' + i)))})
	}

	require.Len(t, m.errors, maxErrors)
	assert.Equal(t, "c", m.errors[0].Err.Error())
	assert.Contains(t, m.View(), "Failed to scrobble: e")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(time.Now())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	next, cmd := m.Update(closedMsg{})
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).closed)
}

func TestModel_Keys(t *testing.T) {
	m := newTestModel(time.Now())
	m = update(t, m, events.ErrorEvent{Operation: "scrobble", Err: errors.New("boom")})
	m = update(t, m, events.RuleStatusChange{Rules: []events.RuleState{{RuleID: 1, ProcessName: "vlc"}}})
	require.Contains(t, m.View(), "vlc")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	assert.Empty(t, m.errors)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.NotContains(t, m.View(), "vlc")

	assert.Contains(t, m.View(), "q: quit")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Contains(t, m.View(), "Clear the error list")
}

func TestWaitForEvent(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe()

	bus.PublishRules(events.RulesChange{Count: 1, Enabled: 1})
	msg := waitForEvent(sub)()
	assert.Equal(t, events.RulesChange{Count: 1, Enabled: 1}, msg)

	bus.Close()
	assert.Equal(t, closedMsg{}, waitForEvent(sub)())
}
