package events

import "time"

// Track is the listening information carried by events.
type Track struct {
	Artist string
	Title  string
	Album  string
	Length time.Duration // zero when unknown
	Tags   []string
}

// NowPlayingChange is emitted when the tracked play session changes.
//
// Emitted by:
//   - the scrobble engine, after a successful now-playing update (Track set)
//   - the scrobble engine, when the matcher reports nothing playing (Track nil)
//
// Repeated observations of the same track do not emit.
type NowPlayingChange struct {
	Track     *Track
	StartedAt time.Time
}

// ScrobbleResult is emitted once per play session when it qualifies as a scrobble.
type ScrobbleResult struct {
	Track     Track
	StartedAt time.Time
	Queued    bool // submission failed and the scrobble was queued for retry
	Err       error
}

// RuleState is the display state of one rule after a matcher tick.
type RuleState struct {
	RuleID      int64
	ProcessName string
	Active      bool
	Artist      string
	Title       string
}

// RuleStatusChange is emitted after every matcher tick.
type RuleStatusChange struct {
	Rules []RuleState
}

// RulesChange is emitted when the rule set is mutated.
type RulesChange struct {
	Count   int
	Enabled int
}

// GatewayChange is emitted on every gateway connection state transition.
type GatewayChange struct {
	ConnectionID string
	Previous     string
	Current      string
	Err          error
}

// PresenceChange is emitted for every presence update attempt.
type PresenceChange struct {
	Text string
	Sent bool // false when dropped by the rate limiter
}

// ErrorEvent is emitted when a background operation fails.
type ErrorEvent struct {
	Operation string // e.g., "scrobble", "now playing"
	Err       error
}
