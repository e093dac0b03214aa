package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultAPIURL is the Discord REST root.
	DefaultAPIURL = "https://discord.com/api/"
	// DefaultVersion is the gateway protocol version spoken by Client.
	DefaultVersion = 6
)

// User is the account a token belongs to.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func endpoint(apiURL, path string) string {
	return strings.TrimSuffix(apiURL, "/") + "/" + path
}

// Discover asks the REST API for the gateway address and returns the
// websocket URL for the given protocol version.
func Discover(ctx context.Context, hc *http.Client, apiURL string, version int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(apiURL, "gateway"), nil)
	if err != nil {
		return "", err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discover gateway: HTTP %d", resp.StatusCode)
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("discover gateway: empty url")
	}

	u, err := url.Parse(body.URL)
	if err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	q := u.Query()
	q.Set("v", strconv.Itoa(version))
	q.Set("encoding", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ValidateToken fetches the current user; it fails with ErrInvalidToken when
// the token is rejected.
func ValidateToken(ctx context.Context, hc *http.Client, apiURL, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(apiURL, "users/@me"), nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", token)

	resp, err := hc.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("validate token: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return User{}, ErrInvalidToken
	default:
		return User{}, fmt.Errorf("validate token: HTTP %d", resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&u); err != nil {
		return User{}, fmt.Errorf("validate token: %w", err)
	}
	return u, nil
}
