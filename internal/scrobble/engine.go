// Package scrobble tracks play sessions and decides when a play is reported
// as now playing and when it counts as a scrobble.
package scrobble

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/lastfm"
	"github.com/llehouerou/lastcord/internal/state"
)

const (
	// MinElapsed is how long a track must play before it can be scrobbled.
	MinElapsed = 30 * time.Second
	// DefaultCallTimeout bounds each call to the service.
	DefaultCallTimeout = 10 * time.Second

	maxCachedLookups = 512
	lookupRetryDelay = time.Minute
)

// Service is the remote music-tracking service.
type Service interface {
	LookupTrack(ctx context.Context, artist, title string) (lastfm.TrackInfo, error)
	UpdateNowPlaying(ctx context.Context, track lastfm.ScrobbleTrack) error
	Scrobble(ctx context.Context, track lastfm.ScrobbleTrack) error
}

// PendingStore receives scrobbles whose submission failed.
type PendingStore interface {
	AddPendingScrobble(ctx context.Context, s state.PendingScrobble) error
}

// HistoryStore records accepted scrobbles.
type HistoryStore interface {
	AddHistory(ctx context.Context, e state.HistoryEntry) error
}

// Observation is what the matcher reports on one tick.
type Observation struct {
	Artist        string
	Title         string
	LengthSeconds int64 // 0 when unknown
}

// Session is the current play session.
type Session struct {
	Artist        string
	Title         string
	LengthSeconds int64
	Album         string
	Tags          []string
	StartedAt     time.Time
	Scrobbled     bool
}

func (s *Session) same(artist, title string, length int64) bool {
	return s != nil && s.Artist == artist && s.Title == title && s.LengthSeconds == length
}

func (s *Session) track() events.Track {
	return events.Track{
		Artist: s.Artist,
		Title:  s.Title,
		Album:  s.Album,
		Length: time.Duration(s.LengthSeconds) * time.Second,
		Tags:   s.Tags,
	}
}

// Config holds the engine's collaborators.
type Config struct {
	// Service may be nil: sessions are then tracked locally and nothing is submitted.
	Service     Service
	Pending     PendingStore
	History     HistoryStore
	Bus         *events.Bus
	Logger      *slog.Logger
	CallTimeout time.Duration
	Now         func() time.Time
}

type lookupKey struct {
	artist, title string
}

// lookupResult is a cached lookup. Transient failures carry retryAt and are
// looked up again once it has passed.
type lookupResult struct {
	info    lastfm.TrackInfo
	ok      bool
	retryAt time.Time
}

// Engine owns the single live play session.
type Engine struct {
	service     Service
	pending     PendingStore
	history     HistoryStore
	bus         *events.Bus
	logger      *slog.Logger
	callTimeout time.Duration
	now         func() time.Time

	// step serializes observations; service calls are made holding it only.
	step    sync.Mutex
	lookups map[lookupKey]lookupResult

	// mu guards session and idle for readers. Writers also hold step.
	mu      sync.Mutex
	session *Session
	idle    bool

	// observed is the last observed track, nil while nothing plays. It
	// follows observations whether or not the service accepted them.
	observed atomic.Pointer[events.Track]
}

// NewEngine creates an idle engine.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		service:     cfg.Service,
		pending:     cfg.Pending,
		history:     cfg.History,
		bus:         cfg.Bus,
		logger:      logger.With("component", "scrobble"),
		callTimeout: timeout,
		now:         now,
		idle:        true,
		lookups:     make(map[lookupKey]lookupResult),
	}
}

// ProcessObservation advances the session state machine with one
// observation. It returns the service error encountered, if any; the error
// has already been logged and published.
func (e *Engine) ProcessObservation(ctx context.Context, obs Observation) error {
	e.step.Lock()
	defer e.step.Unlock()

	track := e.resolve(ctx, obs)
	prev := e.observed.Swap(&track)

	e.mu.Lock()
	wasIdle := e.idle
	e.idle = false
	e.mu.Unlock()

	length := int64(track.Length / time.Second)
	if e.session.same(track.Artist, track.Title, length) {
		if wasIdle {
			t := e.session.track()
			e.bus.PublishNowPlaying(events.NowPlayingChange{Track: &t, StartedAt: e.session.StartedAt})
		}
		return e.maybeScrobble(ctx)
	}

	next := &Session{
		Artist:        track.Artist,
		Title:         track.Title,
		LengthSeconds: length,
		Album:         track.Album,
		Tags:          track.Tags,
		StartedAt:     e.now(),
	}
	if err := e.updateNowPlaying(ctx, next); err != nil {
		// The previous session stays; the next differing observation retries.
		e.logger.Warn("now playing update failed",
			"artist", track.Artist, "title", track.Title, "error", err)
		e.bus.PublishError(events.ErrorEvent{Operation: string(errmsg.OpLastfmNowPlaying), Err: err})
		if wasIdle || prev == nil || !sameTrack(*prev, track) {
			t := track
			e.bus.PublishNowPlaying(events.NowPlayingChange{Track: &t, StartedAt: next.StartedAt})
		}
		return err
	}

	e.mu.Lock()
	e.session = next
	e.mu.Unlock()
	t := next.track()
	e.bus.PublishNowPlaying(events.NowPlayingChange{Track: &t, StartedAt: next.StartedAt})
	e.logger.Info("now playing", "artist", next.Artist, "title", next.Title, "length", length)
	return nil
}

// resolve completes an observation with what the service knows about it.
// A track already being observed keeps its length, so a lookup that
// succeeds late does not split the play in two.
func (e *Engine) resolve(ctx context.Context, obs Observation) events.Track {
	t := events.Track{
		Artist: obs.Artist,
		Title:  obs.Title,
		Length: time.Duration(obs.LengthSeconds) * time.Second,
	}
	if obs.LengthSeconds != 0 {
		return t
	}
	if cur := e.observed.Load(); cur != nil && cur.Artist == obs.Artist && cur.Title == obs.Title {
		return *cur
	}
	if info, ok := e.lookup(ctx, obs.Artist, obs.Title); ok {
		t.Length = info.Duration.Truncate(time.Second)
		t.Album = info.Album
		t.Tags = info.Tags
	}
	return t
}

func sameTrack(a, b events.Track) bool {
	return a.Artist == b.Artist && a.Title == b.Title && a.Length == b.Length
}

// Idle records that nothing is playing. The session is kept so a resumed
// track continues where it was.
func (e *Engine) Idle() {
	e.step.Lock()
	defer e.step.Unlock()

	e.observed.Store(nil)
	e.mu.Lock()
	wasIdle := e.idle
	e.idle = true
	e.mu.Unlock()
	if !wasIdle {
		e.bus.PublishNowPlaying(events.NowPlayingChange{})
	}
}

// Current returns a copy of the live session.
func (e *Engine) Current() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// Playing returns the live session unless the last observation was "nothing playing".
func (e *Engine) Playing() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || e.idle {
		return Session{}, false
	}
	return *e.session, true
}

// PlayingTrack returns the last observed track, for the presence publisher.
// It never waits on a service call in flight.
func (e *Engine) PlayingTrack() (events.Track, bool) {
	t := e.observed.Load()
	if t == nil {
		return events.Track{}, false
	}
	return *t, true
}

func (e *Engine) lookup(ctx context.Context, artist, title string) (lastfm.TrackInfo, bool) {
	if e.service == nil {
		return lastfm.TrackInfo{}, false
	}
	key := lookupKey{artist, title}
	if r, ok := e.lookups[key]; ok && (r.retryAt.IsZero() || e.now().Before(r.retryAt)) {
		return r.info, r.ok
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	info, err := e.service.LookupTrack(callCtx, artist, title)
	r := lookupResult{info: info, ok: err == nil}
	switch {
	case err == nil:
	case errors.Is(err, lastfm.ErrNotFound):
		e.logger.Debug("track not found", "artist", artist, "title", title)
	default:
		e.logger.Warn("track lookup failed", "artist", artist, "title", title, "error", err)
		r.retryAt = e.now().Add(lookupRetryDelay)
	}

	if len(e.lookups) >= maxCachedLookups {
		clear(e.lookups)
	}
	e.lookups[key] = r
	return r.info, r.ok
}

func (e *Engine) updateNowPlaying(ctx context.Context, s *Session) error {
	if e.service == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.service.UpdateNowPlaying(callCtx, lastfm.ScrobbleTrack{
		Artist:   s.Artist,
		Track:    s.Title,
		Album:    s.Album,
		Duration: time.Duration(s.LengthSeconds) * time.Second,
	})
}

func (e *Engine) maybeScrobble(ctx context.Context) error {
	s := e.session
	if s.Scrobbled {
		return nil
	}
	elapsed := e.now().Unix() - s.StartedAt.Unix()
	if elapsed <= int64(MinElapsed/time.Second) {
		return nil
	}
	if s.LengthSeconds != 0 && elapsed < s.LengthSeconds/2 {
		return nil
	}

	// Marked before submitting: one attempt per session whatever the outcome.
	e.mu.Lock()
	s.Scrobbled = true
	e.mu.Unlock()

	if e.service == nil {
		return nil
	}

	track := lastfm.ScrobbleTrack{
		Artist:    s.Artist,
		Track:     s.Title,
		Album:     s.Album,
		Duration:  time.Duration(s.LengthSeconds) * time.Second,
		Timestamp: s.StartedAt,
	}
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	err := e.service.Scrobble(callCtx, track)
	cancel()

	result := events.ScrobbleResult{Track: s.track(), StartedAt: s.StartedAt, Err: err}
	if err != nil {
		e.logger.Warn("scrobble failed", "artist", s.Artist, "title", s.Title, "error", err)
		e.bus.PublishError(events.ErrorEvent{Operation: string(errmsg.OpLastfmScrobble), Err: err})
		result.Queued = e.queue(ctx, track, err)
	} else {
		e.logger.Info("scrobbled", "artist", s.Artist, "title", s.Title)
		e.record(ctx, track)
	}
	e.bus.PublishScrobble(result)
	return err
}

func (e *Engine) queue(ctx context.Context, track lastfm.ScrobbleTrack, cause error) bool {
	if e.pending == nil {
		return false
	}
	err := e.pending.AddPendingScrobble(ctx, state.PendingScrobble{
		Artist:    track.Artist,
		Track:     track.Track,
		Album:     track.Album,
		Duration:  track.Duration,
		Timestamp: track.Timestamp,
		LastError: cause.Error(),
	})
	if err != nil {
		e.logger.Error("queue scrobble failed", "artist", track.Artist, "title", track.Track, "error", err)
		return false
	}
	return true
}

func (e *Engine) record(ctx context.Context, track lastfm.ScrobbleTrack) {
	if e.history == nil {
		return
	}
	err := e.history.AddHistory(ctx, state.HistoryEntry{
		Artist:      track.Artist,
		Track:       track.Track,
		Album:       track.Album,
		Timestamp:   track.Timestamp,
		SubmittedAt: e.now(),
	})
	if err != nil {
		e.logger.Warn("record history failed", "error", err)
	}
}
