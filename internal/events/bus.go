// Package events is the publish/subscribe channel between the agent's
// components and whatever displays their state.
package events

import "sync"

// Bus fans events out to subscribers. A nil *Bus is valid and drops everything,
// so components can run without anyone listening.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe creates a new event subscription.
// Subscribing to a closed bus returns a subscription whose Done is already closed.
func (b *Bus) Subscribe() *Subscription {
	sub := newSubscription()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.close()
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Unsubscribe removes sub and closes its Done channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			sub.close()
			return
		}
	}
}

// Close signals every subscriber to stop.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.close()
	}
	b.subs = nil
}

func (b *Bus) each(fn func(*Subscription)) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		fn(sub)
	}
}

func (b *Bus) PublishNowPlaying(e NowPlayingChange) {
	b.each(func(s *Subscription) { send(s.nowPlayingCh, e) })
}

func (b *Bus) PublishScrobble(e ScrobbleResult) {
	b.each(func(s *Subscription) { send(s.scrobbleCh, e) })
}

func (b *Bus) PublishRuleStatus(e RuleStatusChange) {
	b.each(func(s *Subscription) { send(s.ruleStatusCh, e) })
}

func (b *Bus) PublishRules(e RulesChange) {
	b.each(func(s *Subscription) { send(s.rulesCh, e) })
}

func (b *Bus) PublishGateway(e GatewayChange) {
	b.each(func(s *Subscription) { send(s.gatewayCh, e) })
}

func (b *Bus) PublishPresence(e PresenceChange) {
	b.each(func(s *Subscription) { send(s.presenceCh, e) })
}

func (b *Bus) PublishError(e ErrorEvent) {
	b.each(func(s *Subscription) { send(s.errorCh, e) })
}
