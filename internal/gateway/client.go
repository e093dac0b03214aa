// Package gateway is a client for the Discord gateway that keeps one
// heartbeat-driven connection alive and publishes presence updates on it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/lastcord/internal/events"
)

const (
	// HeartbeatTimeout is how long an unacknowledged heartbeat may be
	// outstanding before the connection is considered dead.
	HeartbeatTimeout = 5 * time.Second

	// Presence updates allowed per RateWindow.
	RateLimit  = 5
	RateWindow = time.Minute

	// DefaultActivityType is the activity type shown with the presence text.
	DefaultActivityType = 1

	closeByClient = "close requested by client"
)

// Option configures a Client.
type Option func(*Client)

// WithDialer sets the transport.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBus publishes state changes and presence updates.
func WithBus(b *events.Bus) Option {
	return func(c *Client) { c.bus = b }
}

// WithProperties overrides the identify properties.
func WithProperties(p Properties) Option {
	return func(c *Client) { c.props = p }
}

// WithActivityType sets the activity type sent with presence updates.
func WithActivityType(t int) Option {
	return func(c *Client) { c.activityType = t }
}

// Status is a point-in-time view of a connection.
type Status struct {
	ConnectionID      string
	State             State
	User              string
	Game              string
	HeartbeatInterval time.Duration
	LastSequence      *int64
	SentInWindow      int
}

// Client is one gateway connection. It is created unconnected; Connect dials
// and blocks until the session is ready. A Client is never reused: once it is
// disconnected, create a new one.
type Client struct {
	id           string
	token        string
	url          string
	dialer       Dialer
	logger       *slog.Logger
	bus          *events.Bus
	props        Properties
	activityType int

	mu                sync.Mutex
	started           bool
	state             State
	conn              Conn
	heartbeatInterval time.Duration
	seq               *int64
	heartbeatPending  bool
	heartbeatSentAt   time.Time
	identified        bool
	user              string
	game              string
	sent              []time.Time
	err               error

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// New creates an unconnected client for the gateway at url.
func New(token, url string, opts ...Option) *Client {
	c := &Client{
		id:           uuid.NewString(),
		token:        token,
		url:          url,
		dialer:       WebsocketDialer{},
		logger:       slog.New(slog.DiscardHandler),
		props:        DefaultProperties("lastcord"),
		activityType: DefaultActivityType,
		ready:        make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "gateway", "conn", c.id)
	return c
}

// ID identifies this connection in logs and events.
func (c *Client) ID() string {
	return c.id
}

// Connect dials the gateway and waits until the session is ready, the
// connection ends, or ctx is done. Cancelling ctx aborts the connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.started = true
	c.setStateLocked(Connecting)
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		err = fmt.Errorf("dial gateway: %w", err)
		c.finish(err)
		return err
	}

	c.mu.Lock()
	if c.isDone() {
		// Closed while dialing.
		c.mu.Unlock()
		conn.Close()
		return c.Err()
	}
	c.conn = conn
	c.setStateLocked(AwaitingHello)
	c.mu.Unlock()

	go c.readLoop(conn)

	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		c.shutdown(conn, ctx.Err())
		return ctx.Err()
	}
}

// Ready is closed once the session is ready.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is alive.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// State returns the current lifecycle stage.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Game returns the last presence text that was sent, untruncated.
func (c *Client) Game() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

// Status returns a snapshot of the connection.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		ConnectionID:      c.id,
		State:             c.state,
		User:              c.user,
		Game:              c.game,
		HeartbeatInterval: c.heartbeatInterval,
	}
	c.pruneLocked(time.Now())
	st.SentInWindow = len(c.sent)
	if c.seq != nil {
		seq := *c.seq
		st.LastSequence = &seq
	}
	return st
}

// SetPresence publishes text as the user's activity. An empty text clears it.
// Text longer than MaxStatusLength runes is truncated on the wire. At most
// RateLimit updates are sent per rolling RateWindow; excess updates are
// dropped and reported as (false, nil).
func (c *Client) SetPresence(text string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Ready {
		return false, ErrNotReady
	}

	now := time.Now()
	c.pruneLocked(now)
	if len(c.sent) >= RateLimit {
		c.logger.Debug("presence update dropped by rate limit", "text", text)
		c.bus.PublishPresence(events.PresenceChange{Text: text, Sent: false})
		return false, nil
	}

	name := Truncate(text, MaxStatusLength)
	if err := c.writeLocked(presencePayload(name, c.activityType)); err != nil {
		return false, fmt.Errorf("send presence: %w", err)
	}
	c.sent = append(c.sent, now)
	c.game = text

	c.logger.Info("presence updated", "text", name)
	c.bus.PublishPresence(events.PresenceChange{Text: text, Sent: true})
	return true, nil
}

// pruneLocked drops send times that fell out of the rolling window.
func (c *Client) pruneLocked(now time.Time) {
	kept := c.sent[:0]
	for _, t := range c.sent {
		if now.Sub(t) < RateWindow {
			kept = append(kept, t)
		}
	}
	c.sent = kept
}

// Close ends the connection with a normal close frame.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	c.shutdown(conn, &CloseError{Code: CloseNormal, Reason: closeByClient})
	return nil
}

// shutdown sends the client's normal close frame on a live conn, then tears
// the connection down with err.
func (c *Client) shutdown(conn Conn, err error) {
	if conn != nil && !c.isDone() {
		if werr := conn.WriteClose(CloseNormal, closeByClient); werr != nil {
			c.logger.Debug("write close frame failed", "error", werr)
		}
	}
	c.finish(err)
}

func (c *Client) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("malformed gateway message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Disconnected {
		return
	}

	switch p.Op {
	case opDispatch:
		if p.S != nil {
			seq := *p.S
			c.seq = &seq
		}
		if p.T == "READY" {
			c.handleReadyLocked(p.D)
		}

	case opHello:
		c.handleHelloLocked(p.D)

	case opHeartbeatAck:
		if c.state < Handshaking {
			c.logger.Debug("heartbeat ack before hello ignored")
			return
		}
		c.heartbeatPending = false
		if !c.identified {
			if err := c.writeLocked(identifyPayload(c.token, c.props)); err != nil {
				c.logger.Warn("send identify failed", "error", err)
				return
			}
			c.identified = true
			c.logger.Debug("identify sent")
		}

	case opHeartbeat:
		if c.state >= Handshaking {
			c.sendHeartbeatLocked(time.Now())
		}

	case opReconnect, opInvalidSession:
		c.logger.Warn("gateway asked to reconnect", "op", p.Op)
		go c.finish(&CloseError{Code: CloseAbnormal, Reason: fmt.Sprintf("server sent op %d", p.Op)})

	default:
		c.logger.Debug("ignoring gateway op", "op", p.Op)
	}
}

func (c *Client) handleHelloLocked(raw json.RawMessage) {
	if c.state != AwaitingHello {
		c.logger.Debug("duplicate hello ignored")
		return
	}
	var hello helloData
	if err := json.Unmarshal(raw, &hello); err != nil || hello.HeartbeatInterval <= 0 {
		c.logger.Warn("invalid hello", "data", string(raw))
		return
	}
	c.heartbeatInterval = time.Duration(hello.HeartbeatInterval) * time.Millisecond
	c.setStateLocked(Handshaking)

	// First heartbeat goes out immediately.
	c.sendHeartbeatLocked(time.Now())
	go c.heartbeatLoop(c.heartbeatInterval)
}

func (c *Client) handleReadyLocked(raw json.RawMessage) {
	var ready readyData
	if err := json.Unmarshal(raw, &ready); err != nil {
		c.logger.Warn("malformed ready event", "error", err)
	}
	c.user = ready.User.Username
	if c.state != Ready {
		c.setStateLocked(Ready)
		c.readyOnce.Do(func() { close(c.ready) })
		c.logger.Info("gateway ready", "user", c.user)
	}
}

func (c *Client) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			if !c.beat(now) {
				return
			}
		}
	}
}

// beat sends a heartbeat, or kills the connection when the previous one
// was never acknowledged.
func (c *Client) beat(now time.Time) bool {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		return false
	}
	if c.heartbeatPending && now.Sub(c.heartbeatSentAt) > HeartbeatTimeout {
		sentAt := c.heartbeatSentAt
		c.mu.Unlock()
		c.logger.Warn("heartbeat not acknowledged, closing", "sent_at", sentAt)
		c.finish(&CloseError{Code: CloseAbnormal, Reason: "heartbeat not acknowledged"})
		return false
	}
	c.sendHeartbeatLocked(now)
	c.mu.Unlock()
	return true
}

func (c *Client) sendHeartbeatLocked(now time.Time) {
	if err := c.writeLocked(heartbeatPayload(c.seq)); err != nil {
		c.logger.Warn("send heartbeat failed", "error", err)
		return
	}
	c.heartbeatPending = true
	c.heartbeatSentAt = now
}

func (c *Client) writeLocked(msg outbound) error {
	if c.conn == nil {
		return ErrNotReady
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(data)
}

// finish tears the connection down once. The first recorded error wins.
func (c *Client) finish(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		conn := c.conn
		c.setStateLocked(Disconnected)
		c.mu.Unlock()

		close(c.done)
		if conn != nil {
			// Dropping the socket without a close frame is the abnormal close.
			conn.Close()
		}

		var ce *CloseError
		switch {
		case errors.As(err, &ce) && ce.Code == CloseNormal:
			c.logger.Info("gateway closed", "reason", ce.Reason)
		default:
			c.logger.Warn("gateway disconnected", "error", err)
		}
	})
}

func (c *Client) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	prev := c.state
	c.state = s
	change := events.GatewayChange{
		ConnectionID: c.id,
		Previous:     prev.String(),
		Current:      s.String(),
	}
	if s == Disconnected {
		change.Err = c.err
	}
	c.bus.PublishGateway(change)
}
