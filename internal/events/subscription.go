package events

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	NowPlaying <-chan NowPlayingChange
	Scrobbled  <-chan ScrobbleResult
	RuleStatus <-chan RuleStatusChange
	Rules      <-chan RulesChange
	Gateway    <-chan GatewayChange
	Presence   <-chan PresenceChange
	Error      <-chan ErrorEvent
	Done       <-chan struct{}

	nowPlayingCh chan NowPlayingChange
	scrobbleCh   chan ScrobbleResult
	ruleStatusCh chan RuleStatusChange
	rulesCh      chan RulesChange
	gatewayCh    chan GatewayChange
	presenceCh   chan PresenceChange
	errorCh      chan ErrorEvent
	doneCh       chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		nowPlayingCh: make(chan NowPlayingChange, eventBufferSize),
		scrobbleCh:   make(chan ScrobbleResult, eventBufferSize),
		ruleStatusCh: make(chan RuleStatusChange, eventBufferSize),
		rulesCh:      make(chan RulesChange, eventBufferSize),
		gatewayCh:    make(chan GatewayChange, eventBufferSize),
		presenceCh:   make(chan PresenceChange, eventBufferSize),
		errorCh:      make(chan ErrorEvent, eventBufferSize),
		doneCh:       make(chan struct{}),
	}
	s.NowPlaying = s.nowPlayingCh
	s.Scrobbled = s.scrobbleCh
	s.RuleStatus = s.ruleStatusCh
	s.Rules = s.rulesCh
	s.Gateway = s.gatewayCh
	s.Presence = s.presenceCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

// send performs a non-blocking send; events are dropped when the buffer is full.
func send[T any](ch chan T, e T) {
	select {
	case ch <- e:
	default:
	}
}
