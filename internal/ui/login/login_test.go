package login

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func press(m tea.Model, t tea.KeyType) (tea.Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: t})
}

func TestModel_CollectsAllFields(t *testing.T) {
	var m tea.Model = New("Last.fm",
		Field{Label: "Username"},
		Field{Label: "Password", Secret: true},
	)

	m = typeText(m, "alice")
	m, _ = press(m, tea.KeyEnter)
	m = typeText(m, "hunter2")

	assert.NotContains(t, m.View(), "hunter2", "secret fields are masked")

	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"alice", "hunter2"}, m.(Model).Values())
	assert.False(t, m.(Model).Canceled())
}

func TestModel_RequiresValue(t *testing.T) {
	var m tea.Model = New("Discord", Field{Label: "Token", Secret: true})

	m, _ = press(m, tea.KeyEnter)

	assert.Nil(t, m.(Model).Values())
	assert.Contains(t, m.View(), "Token is required")
}

func TestModel_Cancel(t *testing.T) {
	var m tea.Model = New("Discord", Field{Label: "Token"})
	m = typeText(m, "abc")

	m, cmd := press(m, tea.KeyEsc)

	require.NotNil(t, cmd)
	assert.True(t, m.(Model).Canceled())
	assert.Nil(t, m.(Model).Values())
}

func TestModel_TabSwitchesFields(t *testing.T) {
	var m tea.Model = New("Last.fm", Field{Label: "Username"}, Field{Label: "Password"})

	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "pw")
	m, _ = press(m, tea.KeyShiftTab)
	m = typeText(m, "bob")
	m, _ = press(m, tea.KeyTab)
	m, _ = press(m, tea.KeyEnter)

	assert.Equal(t, []string{"bob", "pw"}, m.(Model).Values())
}
