// Package notify shows desktop notifications for agent events.
package notify

import "time"

// Urgency levels understood by freedesktop notification servers.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification categories, used by servers to pick icons and sounds.
const (
	CategoryError    = "network.error"
	CategoryScrobble = "transfer.complete"
)

// Message is a single desktop notification.
type Message struct {
	Summary  string
	Body     string
	Category string
	Urgency  Urgency
	// Expire is how long the server keeps the message up. Negative uses the
	// server default and zero keeps it until dismissed.
	Expire time.Duration
	// Replaces is the ID of a previous message to update in place.
	Replaces uint32
}

// Sender delivers messages to the desktop.
type Sender interface {
	// Send shows m and returns the ID the server assigned to it.
	Send(m Message) (uint32, error)
	// Dismiss withdraws a message previously sent.
	Dismiss(id uint32) error
	Close() error
}

const appName = "lastcord"

func expireMillis(d time.Duration) int32 {
	switch {
	case d < 0:
		return -1
	case d == 0:
		return 0
	}
	ms := d.Milliseconds()
	if ms < 1 {
		return 1
	}
	return int32(min(ms, int64(1<<31-1)))
}

// Discard returns a Sender that drops every message.
func Discard() Sender { return discard{} }

type discard struct{}

func (discard) Send(Message) (uint32, error) { return 0, nil }
func (discard) Dismiss(uint32) error { return nil }
func (discard) Close() error { return nil }
