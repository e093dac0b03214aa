package presence

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/gateway"
)

// Target is a gateway connection presence is published on.
type Target interface {
	State() gateway.State
	Game() string
	SetPresence(text string) (bool, error)
}

// Source reports the track currently playing.
type Source func() (events.Track, bool)

// Publisher pushes the formatted current track to the active connection
// whenever the two differ.
type Publisher struct {
	source    Source
	formatter Formatter
	logger    *slog.Logger

	mu     sync.Mutex
	target Target
}

// NewPublisher creates a publisher with no connection.
func NewPublisher(source Source, formatter Formatter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{
		source:    source,
		formatter: formatter,
		logger:    logger.With("component", "presence"),
	}
}

// SetTarget switches to a new connection; nil detaches.
func (p *Publisher) SetTarget(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = t
}

// Text returns what the presence should currently say. Nothing playing
// yields an empty text, which clears the activity.
func (p *Publisher) Text() string {
	track, ok := p.source()
	if !ok {
		return ""
	}
	return p.formatter.Format(track)
}

// Tick sends the current text if the connection is ready and shows
// something else. Rate-limited drops are retried on a later tick.
func (p *Publisher) Tick() {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()

	if target == nil || target.State() != gateway.Ready {
		return
	}
	text := p.Text()
	if text == target.Game() {
		return
	}
	if _, err := target.SetPresence(text); err != nil && !errors.Is(err, gateway.ErrNotReady) {
		p.logger.Warn("presence update failed", "error", err)
	}
}
