// Package agent wires the scanner, matcher, scrobble engine and presence
// gateway together and runs them on their own schedules.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/gateway"
	"github.com/llehouerou/lastcord/internal/lastfm"
	"github.com/llehouerou/lastcord/internal/plugin"
	"github.com/llehouerou/lastcord/internal/presence"
	"github.com/llehouerou/lastcord/internal/scanner"
	"github.com/llehouerou/lastcord/internal/scrobble"
)

// Intervals are the periods of the independent loops.
type Intervals struct {
	Scan     time.Duration
	Match    time.Duration
	Presence time.Duration
	Retry    time.Duration
	// Rules is how often the rule store is checked for changes made by
	// other processes.
	Rules time.Duration
}

func (i Intervals) withDefaults() Intervals {
	if i.Scan <= 0 {
		i.Scan = time.Second
	}
	if i.Match <= 0 {
		i.Match = time.Second
	}
	if i.Presence <= 0 {
		i.Presence = time.Second
	}
	if i.Retry <= 0 {
		i.Retry = scrobble.DefaultRetryInterval
	}
	if i.Rules <= 0 {
		i.Rules = 2 * time.Second
	}
	return i
}

// Deps are the components the agent runs. Retrier, Publisher and Gateway
// are optional.
type Deps struct {
	Scanner   *scanner.Scanner
	Rules     *plugin.Set
	Matcher   *plugin.Matcher
	Engine    *scrobble.Engine
	Retrier   *scrobble.Retrier
	Publisher *presence.Publisher
	Gateway   *GatewayConfig
	Bus       *events.Bus
	Logger    *slog.Logger
	Intervals Intervals
}

// Agent is the running application.
type Agent struct {
	scanner   *scanner.Scanner
	rules     *plugin.Set
	matcher   *plugin.Matcher
	engine    *scrobble.Engine
	retrier   *scrobble.Retrier
	publisher *presence.Publisher
	gw        *GatewayConfig
	bus       *events.Bus
	logger    *slog.Logger
	intervals Intervals

	client         atomic.Pointer[gateway.Client]
	credentialDown atomic.Bool
}

// New creates an agent. It does not start anything.
func New(d Deps) *Agent {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	matcher := d.Matcher
	if matcher == nil {
		matcher = plugin.NewMatcher(d.Bus)
	}
	return &Agent{
		scanner:   d.Scanner,
		rules:     d.Rules,
		matcher:   matcher,
		engine:    d.Engine,
		retrier:   d.Retrier,
		publisher: d.Publisher,
		gw:        d.Gateway,
		bus:       d.Bus,
		logger:    logger.With("component", "agent"),
		intervals: d.Intervals.withDefaults(),
	}
}

// Run starts every loop and blocks until ctx is done and all of them have
// stopped. The gateway is closed with a normal close on the way out.
func (a *Agent) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Go(func() { a.scanner.Run(ctx, a.intervals.Scan) })
	wg.Go(func() { Every(ctx, a.intervals.Match, a.matchTick) })
	wg.Go(func() { Every(ctx, a.intervals.Rules, a.rulesTick) })
	if a.publisher != nil {
		wg.Go(func() {
			Every(ctx, a.intervals.Presence, func(context.Context) { a.publisher.Tick() })
		})
	}
	if a.retrier != nil {
		wg.Go(func() { Every(ctx, a.intervals.Retry, a.retryTick) })
	}
	if a.gw != nil {
		wg.Go(func() { a.superviseGateway(ctx) })
	}

	a.logger.Info("agent started")
	<-ctx.Done()
	wg.Wait()
	a.logger.Info("agent stopped")
	return nil
}

// Gateway returns the live gateway connection, if any.
func (a *Agent) Gateway() *gateway.Client {
	return a.client.Load()
}

// Matcher returns the matcher holding the per-rule display state.
func (a *Agent) Matcher() *plugin.Matcher {
	return a.matcher
}

// matchTick runs one matcher pass and feeds the result to the engine.
func (a *Agent) matchTick(ctx context.Context) {
	res, ok := a.matcher.Match(a.rules.Enabled(), a.scanner.Snapshot())
	if !ok {
		a.engine.Idle()
		return
	}
	err := a.engine.ProcessObservation(ctx, scrobble.Observation{
		Artist: res.Artist,
		Title:  res.Title,
	})
	a.checkCredential(err)
}

// rulesTick reloads the rules when another process changed them.
func (a *Agent) rulesTick(ctx context.Context) {
	if _, err := a.rules.Refresh(ctx); err != nil {
		a.logger.Warn("reload rules failed", "error", err)
		a.bus.PublishError(events.ErrorEvent{Operation: string(errmsg.OpRuleLoad), Err: err})
	}
}

func (a *Agent) retryTick(ctx context.Context) {
	if a.credentialDown.Load() {
		return
	}
	res, err := a.retrier.Retry(ctx)
	if err != nil {
		a.logger.Warn("retry pending scrobbles failed", "error", err)
		a.bus.PublishError(events.ErrorEvent{Operation: string(errmsg.OpLastfmRetry), Err: err})
		a.checkCredential(err)
		return
	}
	if res.Succeeded > 0 || res.Failed > 0 || res.Expired > 0 {
		a.logger.Info("retried pending scrobbles",
			"succeeded", res.Succeeded, "failed", res.Failed,
			"skipped", res.Skipped, "expired", res.Expired)
	}
}

// checkCredential pauses retries while the Last.fm session is rejected. A
// later successful call resumes them.
func (a *Agent) checkCredential(err error) {
	switch {
	case err == nil:
		if a.credentialDown.Swap(false) {
			a.logger.Info("last.fm session accepted again")
		}
	case lastfm.IsCredentialError(err):
		if !a.credentialDown.Swap(true) {
			a.logger.Error("last.fm rejected the session, run \"lastcord auth lastfm\"", "error", err)
		}
	}
}

// CredentialDown reports whether Last.fm currently rejects the session.
func (a *Agent) CredentialDown() bool {
	return a.credentialDown.Load()
}
