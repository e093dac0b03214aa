package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/gateway"
)

const (
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = time.Minute
)

var errNoGatewayURL = errors.New("gateway discovery returned no url")

// GatewayConfig describes how to reach the presence gateway.
type GatewayConfig struct {
	Token string
	// Discover returns the websocket URL to dial for each attempt.
	Discover func(ctx context.Context) (string, error)
	// Options are applied to every connection.
	Options    []gateway.Option
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// RESTDiscovery asks the REST API for the gateway URL on every attempt.
func RESTDiscovery(hc *http.Client, apiURL string, version int, timeout time.Duration) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return gateway.Discover(ctx, hc, apiURL, version)
	}
}

// superviseGateway keeps one connection alive, reconnecting with backoff
// until ctx is done or the token is rejected.
func (a *Agent) superviseGateway(ctx context.Context) {
	backoff := Backoff{Min: a.gw.MinBackoff, Max: a.gw.MaxBackoff}
	if backoff.Min <= 0 {
		backoff.Min = DefaultMinBackoff
	}
	if backoff.Max < backoff.Min {
		backoff.Max = max(DefaultMaxBackoff, backoff.Min)
	}

	for {
		err := a.connectOnce(ctx, &backoff)
		if ctx.Err() != nil {
			return
		}
		if gateway.IsAuthFailure(err) {
			a.logger.Error("discord rejected the token, presence disabled", "error", err)
			a.bus.PublishError(events.ErrorEvent{Operation: string(errmsg.OpDiscordConnect), Err: err})
			return
		}

		delay := backoff.Next()
		a.logger.Warn("gateway connection lost", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connectOnce runs one connection to completion.
func (a *Agent) connectOnce(ctx context.Context, backoff *Backoff) error {
	url, err := a.gw.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover gateway: %w", err)
	}
	if url == "" {
		return errNoGatewayURL
	}

	c := gateway.New(a.gw.Token, url, a.gw.Options...)
	if err := c.Connect(ctx); err != nil {
		return err
	}

	backoff.Reset()
	a.client.Store(c)
	if a.publisher != nil {
		a.publisher.SetTarget(c)
	}
	defer func() {
		if a.publisher != nil {
			a.publisher.SetTarget(nil)
		}
		a.client.CompareAndSwap(c, nil)
	}()

	select {
	case <-c.Done():
		return c.Err()
	case <-ctx.Done():
		_ = c.Close()
		return ctx.Err()
	}
}
