//go:build linux

package notify

import (
	"os"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHints(t *testing.T) {
	h := hints(Message{Urgency: UrgencyCritical, Category: CategoryError})
	assert.Equal(t, dbus.MakeVariant(byte(2)), h["urgency"])
	assert.Equal(t, dbus.MakeVariant(CategoryError), h["category"])
	assert.Equal(t, dbus.MakeVariant("lastcord"), h["desktop-entry"])

	_, ok := hints(Message{})["category"]
	assert.False(t, ok)
}

func TestDesktop_SendReplaceDismiss(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}
	s, err := NewDesktop()
	if err != nil {
		t.Skipf("no notification server: %v", err)
	}
	defer s.Close()

	id, err := s.Send(Message{Summary: "lastcord test", Body: "first", Expire: 1000})
	require.NoError(t, err)
	require.NotZero(t, id)

	again, err := s.Send(Message{Summary: "lastcord test", Body: "second", Replaces: id})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	assert.NoError(t, s.Dismiss(again))
	assert.NoError(t, s.Dismiss(0))
}
