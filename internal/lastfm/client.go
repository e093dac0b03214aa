package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shkh/lastfm-go/lastfm"
)

const (
	// DefaultEndpoint is the Last.fm web service root.
	DefaultEndpoint = "https://ws.audioscrobbler.com/2.0/"
	// DefaultTimeout bounds requests made through the signed-request path.
	DefaultTimeout = 10 * time.Second

	maxResponseSize = 1 << 20
)

// Client wraps the Last.fm API for scrobbling operations.
//
// Now-playing updates and scrobbles are signed POSTs made with the client's
// own http.Client so they honor context cancellation. Lookups and logins go
// through lastfm-go.
type Client struct {
	api        *lastfm.Api
	apiKey     string
	apiSecret  string
	endpoint   string
	httpClient *http.Client

	mu         sync.RWMutex
	sessionKey string

	// lastfm-go keeps session state on the Api value.
	libMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the web service root used for signed requests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client used for signed requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a new Last.fm client with the given API credentials.
func New(apiKey, apiSecret string, opts ...Option) *Client {
	c := &Client{
		api:        lastfm.New(apiKey, apiSecret),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSessionKey sets the authenticated session key.
func (c *Client) SetSessionKey(key string) {
	c.mu.Lock()
	c.sessionKey = key
	c.mu.Unlock()

	c.libMu.Lock()
	c.api.SetSession(key)
	c.libMu.Unlock()
}

// SessionKey returns the current session key.
func (c *Client) SessionKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionKey
}

// IsAuthenticated returns true if a session key is set.
func (c *Client) IsAuthenticated() bool {
	return c.SessionKey() != ""
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (c *Client) UpdateNowPlaying(ctx context.Context, track ScrobbleTrack) error {
	sk := c.SessionKey()
	if sk == "" {
		return ErrNotAuthenticated
	}

	params := url.Values{}
	params.Set("artist", track.Artist)
	params.Set("track", track.Track)
	if track.Album != "" {
		params.Set("album", track.Album)
	}
	if track.Duration > 0 {
		params.Set("duration", strconv.Itoa(int(track.Duration.Seconds())))
	}
	params.Set("sk", sk)

	if err := c.post(ctx, "track.updateNowPlaying", params); err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble submits a track play to Last.fm.
func (c *Client) Scrobble(ctx context.Context, track ScrobbleTrack) error {
	sk := c.SessionKey()
	if sk == "" {
		return ErrNotAuthenticated
	}

	params := url.Values{}
	params.Set("artist", track.Artist)
	params.Set("track", track.Track)
	params.Set("timestamp", strconv.FormatInt(track.Timestamp.Unix(), 10))
	if track.Album != "" {
		params.Set("album", track.Album)
	}
	if track.Duration > 0 {
		params.Set("duration", strconv.Itoa(int(track.Duration.Seconds())))
	}
	params.Set("sk", sk)

	if err := c.post(ctx, "track.scrobble", params); err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}

type response struct {
	XMLName xml.Name `xml:"lfm"`
	Status  string   `xml:"status,attr"`
	Error   struct {
		Code    int    `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
}

func (c *Client) post(ctx context.Context, method string, params url.Values) error {
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("api_sig", Sign(params, c.apiSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var parsed response
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if parsed.Status != "ok" {
		return &APIError{Code: parsed.Error.Code, Message: strings.TrimSpace(parsed.Error.Message)}
	}
	return nil
}
