package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/gateway"
	"github.com/llehouerou/lastcord/internal/lastfm"
	"github.com/llehouerou/lastcord/internal/plugin"
	"github.com/llehouerou/lastcord/internal/presence"
	"github.com/llehouerou/lastcord/internal/scanner"
	"github.com/llehouerou/lastcord/internal/scrobble"
)

// processes is a scanner source the test can change.
type processes struct {
	mu      sync.Mutex
	records []scanner.Record
}

func (p *processes) set(records ...scanner.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = records
}

func (p *processes) List(context.Context) ([]scanner.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]scanner.Record(nil), p.records...), nil
}

type fixture struct {
	procs  *processes
	engine *scrobble.Engine
	deps   Deps
}

func newFixture(t *testing.T, bus *events.Bus) *fixture {
	t.Helper()
	procs := &processes{}
	rules := plugin.NewSet(nil, bus, nil)
	_, err := rules.Add(context.Background(), plugin.Definition{
		ProcessName: "foobar2000.exe",
		Pattern:     `^(.+) - (.+) \[foobar2000\]$`,
		ArtistGroup: 1,
		TitleGroup:  2,
		Enabled:     true,
	})
	require.NoError(t, err)

	engine := scrobble.NewEngine(scrobble.Config{Bus: bus})
	return &fixture{
		procs:  procs,
		engine: engine,
		deps: Deps{
			Scanner:   scanner.New(procs, 0, nil),
			Rules:     rules,
			Engine:    engine,
			Publisher: presence.NewPublisher(engine.PlayingTrack, presence.NewFormatter(""), nil),
			Bus:       bus,
		},
	}
}

func TestAgent_MatchTick(t *testing.T) {
	f := newFixture(t, nil)
	a := New(f.deps)
	ctx := context.Background()

	f.procs.set(
		scanner.Record{ProcessName: "explorer.exe", WindowTitle: "Downloads"},
		scanner.Record{ProcessName: "foobar2000.exe", WindowTitle: "Daft Punk - Digital Love [foobar2000]"},
	)
	f.deps.Scanner.Scan(ctx)
	a.matchTick(ctx)

	s, ok := f.engine.Playing()
	require.True(t, ok)
	assert.Equal(t, "Daft Punk", s.Artist)
	assert.Equal(t, "Digital Love", s.Title)

	states := a.Matcher().States()
	require.Len(t, states, 1)
	assert.True(t, states[0].Active)

	f.procs.set()
	f.deps.Scanner.Scan(ctx)
	a.matchTick(ctx)

	_, ok = f.engine.Playing()
	assert.False(t, ok)
	assert.False(t, a.Matcher().States()[0].Active)
}

func TestAgent_CredentialTracking(t *testing.T) {
	a := New(Deps{})

	a.checkCredential(fmt.Errorf("scrobble: %w", &lastfm.APIError{Code: 9, Message: "Invalid session key"}))
	assert.True(t, a.CredentialDown())

	a.checkCredential(&lastfm.APIError{Code: 16, Message: "temporarily unavailable"})
	assert.True(t, a.CredentialDown(), "transient errors do not clear the state")

	a.checkCredential(nil)
	assert.False(t, a.CredentialDown())
}

func TestAgent_RunPublishesPresenceAndReconnects(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := events.NewBus()
		defer bus.Close()
		f := newFixture(t, bus)
		f.procs.set(scanner.Record{ProcessName: "foobar2000.exe", WindowTitle: "A - B [foobar2000]"})

		dialer := &serverDialer{}
		f.deps.Gateway = &GatewayConfig{
			Token:    "token",
			Discover: func(context.Context) (string, error) { return "wss://gateway.test", nil },
			Options:  []gateway.Option{gateway.WithDialer(dialer)},
		}
		a := New(f.deps)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()

		conns := dialer.dialed()
		require.Len(t, conns, 1)
		require.NotNil(t, a.Gateway())
		assert.Equal(t, gateway.Ready, a.Gateway().State())
		assert.Equal(t, []string{"A - B"}, conns[0].sentPresences())

		// Server drops the connection: one reconnect after the first backoff step.
		conns[0].Close()
		synctest.Wait()
		assert.Nil(t, a.Gateway())

		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()

		conns = dialer.dialed()
		require.Len(t, conns, 2)
		assert.Equal(t, []string{"A - B"}, conns[1].sentPresences(), "new connection gets the presence again")

		cancel()
		require.NoError(t, <-done)
		assert.Equal(t, gateway.CloseNormal, conns[1].closedWith())
	})
}

func TestAgent_IdleClearsPresence(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)
		f.procs.set(scanner.Record{ProcessName: "foobar2000.exe", WindowTitle: "A - B [foobar2000]"})
		dialer := &serverDialer{}
		f.deps.Gateway = &GatewayConfig{
			Discover: func(context.Context) (string, error) { return "wss://gateway.test", nil },
			Options:  []gateway.Option{gateway.WithDialer(dialer)},
		}
		a := New(f.deps)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		time.Sleep(2500 * time.Millisecond)
		f.procs.set()
		time.Sleep(3 * time.Second)
		synctest.Wait()

		assert.Equal(t, []string{"A - B", ""}, dialer.dialed()[0].sentPresences())

		cancel()
		<-done
	})
}

func TestAgent_StopsOnRejectedToken(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := events.NewBus()
		defer bus.Close()
		sub := bus.Subscribe()
		f := newFixture(t, bus)
		dialer := &serverDialer{}
		f.deps.Gateway = &GatewayConfig{
			Discover: func(context.Context) (string, error) { return "", gateway.ErrInvalidToken },
			Options:  []gateway.Option{gateway.WithDialer(dialer)},
		}
		a := New(f.deps)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		time.Sleep(5 * time.Minute)
		synctest.Wait()

		assert.Empty(t, dialer.dialed())
		e := <-sub.Error
		assert.ErrorIs(t, e.Err, gateway.ErrInvalidToken)

		cancel()
		<-done
	})
}

func TestAgent_DiscoveryFailureBacksOff(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)
		var mu sync.Mutex
		var attempts []time.Duration
		start := time.Now()
		f.deps.Gateway = &GatewayConfig{
			Discover: func(context.Context) (string, error) {
				mu.Lock()
				defer mu.Unlock()
				attempts = append(attempts, time.Since(start))
				return "", fmt.Errorf("no route to host")
			},
			MinBackoff: time.Second,
			MaxBackoff: 4 * time.Second,
		}
		a := New(f.deps)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		time.Sleep(16 * time.Second)
		cancel()
		<-done

		mu.Lock()
		defer mu.Unlock()
		// delays 1, 2, 4, 4, 4
		assert.Equal(t, []time.Duration{
			0, time.Second, 3 * time.Second, 7 * time.Second, 11 * time.Second, 15 * time.Second,
		}, attempts)
	})
}

// ruleStore is a rule store shared by two sets, as two processes share the
// database.
type ruleStore struct {
	mu       sync.Mutex
	defs     []plugin.Definition
	revision int64
	lastID   int64
}

func (s *ruleStore) LoadRules(context.Context) ([]plugin.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]plugin.Definition(nil), s.defs...), nil
}

func (s *ruleStore) SaveRules(_ context.Context, defs []plugin.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = append([]plugin.Definition(nil), defs...)
	s.revision++
	return nil
}

func (s *ruleStore) NextRuleID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

func (s *ruleStore) RulesRevision(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision, nil
}

func TestAgent_ReloadsRulesChangedElsewhere(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bg := context.Background()
		store := &ruleStore{}
		editor := plugin.NewSet(store, nil, nil)
		foobar, err := editor.Add(bg, plugin.Definition{
			ProcessName: "foobar2000.exe",
			Pattern:     `^(.+) - (.+) \[foobar2000\]$`,
			ArtistGroup: 1,
			TitleGroup:  2,
			Enabled:     true,
		})
		require.NoError(t, err)

		f := newFixture(t, nil)
		f.deps.Rules = plugin.NewSet(store, nil, nil)
		require.NoError(t, f.deps.Rules.Load(bg))
		f.procs.set(
			scanner.Record{ProcessName: "foobar2000.exe", WindowTitle: "A - B [foobar2000]"},
			scanner.Record{ProcessName: "vlc.exe", WindowTitle: "C - D - VLC media player"},
		)
		a := New(f.deps)

		ctx, cancel := context.WithCancel(bg)
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()
		track, ok := f.engine.PlayingTrack()
		require.True(t, ok)
		assert.Equal(t, "B", track.Title)

		require.NoError(t, editor.Disable(bg, foobar.ID))
		_, err = editor.Add(bg, plugin.Definition{
			ProcessName: "vlc.exe",
			Pattern:     `^(.+) - (.+) - VLC media player$`,
			ArtistGroup: 1,
			TitleGroup:  2,
			Enabled:     true,
		})
		require.NoError(t, err)

		time.Sleep(3 * time.Second)
		synctest.Wait()
		track, ok = f.engine.PlayingTrack()
		require.True(t, ok)
		assert.Equal(t, "C", track.Artist)
		assert.Equal(t, "D", track.Title)

		cancel()
		<-done
	})
}
