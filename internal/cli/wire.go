package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/llehouerou/lastcord/internal/agent"
	"github.com/llehouerou/lastcord/internal/config"
	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/gateway"
	"github.com/llehouerou/lastcord/internal/lastfm"
	"github.com/llehouerou/lastcord/internal/notify"
	"github.com/llehouerou/lastcord/internal/plugin"
	"github.com/llehouerou/lastcord/internal/presence"
	"github.com/llehouerou/lastcord/internal/scanner"
	"github.com/llehouerou/lastcord/internal/scrobble"
)

var errNoLastfmSession = errors.New("no last.fm session stored, run \"lastcord auth lastfm\" or set lastfm.scrobbling = false")

// wired is a fully wired agent and what must be released after it stops.
type wired struct {
	agent    *agent.Agent
	bus      *events.Bus
	reporter *notify.Reporter
	sub      *events.Subscription
	closers  []func() error
}

func (r *wired) close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// wire builds every component from the loaded config and state.
// Rejected credentials are fatal; missing Discord credentials only disable
// presence.
func (a *app) wire(ctx context.Context, logger *slog.Logger) (*wired, error) {
	cfg := a.cfg
	rt := &wired{bus: events.NewBus()}
	rt.closers = append(rt.closers, func() error { rt.bus.Close(); return nil })
	fail := func(err error) (*wired, error) {
		_ = rt.close()
		return nil, err
	}

	rules := plugin.NewSet(a.state, rt.bus, logger)
	if err := rules.Load(ctx); err != nil {
		return fail(err)
	}
	if len(rules.Rules()) == 0 {
		logger.Warn("no rules configured, nothing will be detected")
	}

	sc := cfg.GetScannerConfig()
	lister, closeLister, err := scanner.NewLister(scanner.Options{
		Command: sc.Command,
		Args:    sc.Args,
		Format:  sc.Format,
		Timeout: sc.CommandTimeout,
		MPRIS:   *sc.MPRIS,
		Logger:  logger,
	})
	if err != nil {
		return fail(err)
	}
	rt.closers = append(rt.closers, closeLister)

	hc := &http.Client{Timeout: cfg.HTTPTimeout()}

	var service scrobble.Service
	var retrier *scrobble.Retrier
	if cfg.ScrobblingEnabled() {
		client, err := a.lastfmClient(ctx, hc, logger)
		if err != nil {
			return fail(err)
		}
		service = client
		sbc := cfg.GetScrobbleConfig()
		retrier = scrobble.NewRetrier(scrobble.RetrierConfig{
			Submitter:   client,
			Queue:       a.state,
			History:     a.state,
			MaxAttempts: sbc.MaxAttempts,
			MaxAge:      sbc.MaxAge,
			CallTimeout: cfg.HTTPTimeout(),
			Logger:      logger,
		})
	} else {
		logger.Info("scrobbling disabled, tracking plays locally")
	}

	engine := scrobble.NewEngine(scrobble.Config{
		Service:     service,
		Pending:     a.state,
		History:     a.state,
		Bus:         rt.bus,
		Logger:      logger,
		CallTimeout: cfg.HTTPTimeout(),
	})

	dc := cfg.GetDiscordConfig()
	var gw *agent.GatewayConfig
	var publisher *presence.Publisher
	if cfg.DiscordEnabled() {
		gw, err = a.gatewayConfig(ctx, hc, dc, rt.bus, logger)
		if err != nil {
			return fail(err)
		}
		if gw != nil {
			publisher = presence.NewPublisher(engine.PlayingTrack, presence.NewFormatter(dc.PresenceFormat), logger)
		}
	}

	if cfg.NotificationsEnabled() {
		sender, err := notify.NewDesktop()
		if err != nil {
			logger.Warn("desktop notifications unavailable", "error", err)
		} else {
			rt.closers = append(rt.closers, sender.Close)
			rt.reporter = notify.NewReporter(sender, notify.ReporterConfig{
				Important: func(err error) bool {
					return lastfm.IsCredentialError(err) || gateway.IsAuthFailure(err)
				},
				OnScrobble: cfg.Notify.OnScrobble,
				Logger:     logger,
			})
			rt.sub = rt.bus.Subscribe()
		}
	}

	rt.agent = agent.New(agent.Deps{
		Scanner:   scanner.New(lister, sc.CommandTimeout, logger),
		Rules:     rules,
		Engine:    engine,
		Retrier:   retrier,
		Publisher: publisher,
		Gateway:   gw,
		Bus:       rt.bus,
		Logger:    logger,
		Intervals: agent.Intervals{
			Scan:     sc.Interval,
			Match:    cfg.MatcherInterval(),
			Presence: cfg.PresenceInterval(),
			Retry:    cfg.GetScrobbleConfig().RetryInterval,
			Rules:    cfg.RulesReloadInterval(),
		},
	})
	return rt, nil
}

// run runs the agent and the notification reporter until ctx is done.
func (r *wired) run(ctx context.Context) error {
	if r.reporter != nil {
		go r.reporter.Run(ctx, r.sub)
	}
	return r.agent.Run(ctx)
}

// sessionClient returns a Last.fm client carrying the stored session.
func (a *app) sessionClient(ctx context.Context, hc *http.Client) (*lastfm.Client, string, error) {
	lc := a.cfg.GetLastfmConfig()
	client := lastfm.New(lc.APIKey, lc.APISecret, lastfm.WithEndpoint(lc.Endpoint), lastfm.WithHTTPClient(hc))

	sess, err := a.state.GetLastfmSession(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("read last.fm session: %w", err)
	}
	if sess == nil {
		return nil, "", errNoLastfmSession
	}
	client.SetSessionKey(sess.SessionKey)
	return client, sess.Username, nil
}

// lastfmClient returns a session client after checking the session. A
// session the service rejects is fatal; an unreachable service is not.
func (a *app) lastfmClient(ctx context.Context, hc *http.Client, logger *slog.Logger) (*lastfm.Client, error) {
	client, username, err := a.sessionClient(ctx, hc)
	if err != nil {
		return nil, err
	}

	name, err := client.ValidateSession(ctx)
	switch {
	case lastfm.IsCredentialError(err):
		return nil, fmt.Errorf("last.fm session for %s was rejected, run \"lastcord auth lastfm\": %w", username, err)
	case err != nil:
		logger.Warn("could not validate Last.fm session", "user", username, "error", err)
	default:
		logger.Info("Last.fm session valid", "user", name)
	}
	return client, nil
}

// discordToken returns the configured token, falling back to the stored one.
func (a *app) discordToken(ctx context.Context) (string, error) {
	if a.cfg.Discord.Token != "" {
		return a.cfg.Discord.Token, nil
	}
	tok, err := a.state.GetDiscordToken(ctx)
	if err != nil {
		return "", fmt.Errorf("read discord token: %w", err)
	}
	if tok == nil {
		return "", nil
	}
	return tok.Token, nil
}

// gatewayConfig returns nil when no token is available.
func (a *app) gatewayConfig(
	ctx context.Context,
	hc *http.Client,
	dc config.DiscordConfig,
	bus *events.Bus,
	logger *slog.Logger,
) (*agent.GatewayConfig, error) {
	token, err := a.discordToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		logger.Warn("no Discord token, presence disabled")
		return nil, nil
	}

	user, err := gateway.ValidateToken(ctx, hc, dc.APIURL, token)
	switch {
	case errors.Is(err, gateway.ErrInvalidToken):
		return nil, fmt.Errorf("discord token was rejected, run \"lastcord auth discord\": %w", err)
	case err != nil:
		logger.Warn("could not validate Discord token", "error", err)
	default:
		logger.Info("Discord token valid", "user", user.Username)
	}

	return &agent.GatewayConfig{
		Token:    token,
		Discover: agent.RESTDiscovery(hc, dc.APIURL, dc.GatewayVersion, a.cfg.HTTPTimeout()),
		Options: []gateway.Option{
			gateway.WithLogger(logger),
			gateway.WithBus(bus),
			gateway.WithProperties(gateway.DefaultProperties(dc.ClientName)),
			gateway.WithActivityType(*dc.ActivityType),
		},
	}, nil
}
