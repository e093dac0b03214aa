package lastfm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shkh/lastfm-go/lastfm"
)

// withLibrary runs fn against lastfm-go, giving up when ctx is done. The
// library has no context support, so an abandoned call finishes in the
// background and its result is discarded.
func withLibrary[T any](ctx context.Context, c *Client, fn func(api *lastfm.Api) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c.libMu.Lock()
		defer c.libMu.Unlock()
		v, err := fn(c.api)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// LookupTrack fetches duration, album and tags for a track.
func (c *Client) LookupTrack(ctx context.Context, artist, title string) (TrackInfo, error) {
	info, err := withLibrary(ctx, c, func(api *lastfm.Api) (TrackInfo, error) {
		res, err := api.Track.GetInfo(lastfm.P{
			"artist":      artist,
			"track":       title,
			"autocorrect": 1,
		})
		if err != nil {
			return TrackInfo{}, err
		}

		ms, _ := strconv.ParseInt(res.Duration, 10, 64) //nolint:errcheck // unknown duration stays 0
		tags := make([]string, 0, len(res.TopTags))
		for _, t := range res.TopTags {
			tags = append(tags, t.Name)
		}
		return TrackInfo{
			Artist:   res.Artist.Name,
			Title:    res.Name,
			Album:    res.Album.Title,
			Duration: time.Duration(ms) * time.Millisecond,
			Tags:     tags,
		}, nil
	})
	if err != nil {
		err = fromLibrary(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeInvalidParameters {
			return TrackInfo{}, ErrNotFound
		}
		return TrackInfo{}, fmt.Errorf("track info: %w", err)
	}
	return info, nil
}

// GetMobileSession exchanges a username and password for a session key and
// makes it the client's session.
func (c *Client) GetMobileSession(ctx context.Context, username, password string) (string, error) {
	sk, err := withLibrary(ctx, c, func(api *lastfm.Api) (string, error) {
		if err := api.Login(username, password); err != nil {
			return "", err
		}
		return api.GetSessionKey(), nil
	})
	if err != nil {
		return "", fmt.Errorf("get mobile session: %w", fromLibrary(err))
	}

	c.mu.Lock()
	c.sessionKey = sk
	c.mu.Unlock()
	return sk, nil
}

// ValidateSession checks the current session key and returns the user name it
// belongs to.
func (c *Client) ValidateSession(ctx context.Context) (string, error) {
	if !c.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	name, err := withLibrary(ctx, c, func(api *lastfm.Api) (string, error) {
		info, err := api.User.GetInfo(nil)
		if err != nil {
			return "", err
		}
		return info.Name, nil
	})
	if err != nil {
		return "", fmt.Errorf("validate session: %w", fromLibrary(err))
	}
	return name, nil
}
