package lastfm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	params := url.Values{}
	params.Set("method", "track.scrobble")
	params.Set("artist", "A")
	params.Set("api_key", "key")
	params.Set("format", "json")

	got := Sign(params, "secret")
	if want := md5hex("api_keykeyartistAmethodtrack.scrobblesecret"); got != want {
		t.Fatalf("Sign = %q, want %q", got, want)
	}

	// Order of insertion must not matter.
	reordered := url.Values{}
	reordered.Set("artist", "A")
	reordered.Set("format", "json")
	reordered.Set("api_key", "key")
	reordered.Set("method", "track.scrobble")
	if Sign(reordered, "secret") != got {
		t.Error("signature depends on insertion order")
	}

	// format and api_sig are excluded.
	params.Set("api_sig", "whatever")
	params.Del("format")
	if Sign(params, "secret") != got {
		t.Error("format or api_sig changed the signature")
	}
}

func TestSign_KnownVector(t *testing.T) {
	params := url.Values{}
	params.Set("a", "1")
	got := Sign(params, "s")
	if got != md5hex("a1s") {
		t.Errorf("Sign = %q, want %q", got, md5hex("a1s"))
	}
}

type capturedRequest struct {
	form url.Values
}

func newTestServer(t *testing.T, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if captured != nil {
			captured.form = r.PostForm
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrobble_SendsSignedRequest(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, `<?xml version="1.0"?><lfm status="ok"><scrobbles accepted="1" ignored="0"/></lfm>`, &got)

	c := New("key", "secret", WithEndpoint(srv.URL))
	c.SetSessionKey("sk-1")

	started := time.Unix(1_700_000_000, 0)
	err := c.Scrobble(context.Background(), ScrobbleTrack{
		Artist:    "Artist",
		Track:     "Title",
		Album:     "Album",
		Timestamp: started,
	})
	if err != nil {
		t.Fatalf("Scrobble failed: %v", err)
	}

	checks := map[string]string{
		"method":    "track.scrobble",
		"artist":    "Artist",
		"track":     "Title",
		"album":     "Album",
		"timestamp": "1700000000",
		"api_key":   "key",
		"sk":        "sk-1",
	}
	for k, want := range checks {
		if v := got.form.Get(k); v != want {
			t.Errorf("%s = %q, want %q", k, v, want)
		}
	}

	sig := got.form.Get("api_sig")
	unsigned := url.Values{}
	for k, v := range got.form {
		unsigned[k] = v
	}
	if sig != Sign(unsigned, "secret") {
		t.Errorf("api_sig %q does not match recomputed signature", sig)
	}
}

func TestUpdateNowPlaying_OmitsEmptyAlbum(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, `<lfm status="ok"><nowplaying/></lfm>`, &got)

	c := New("key", "secret", WithEndpoint(srv.URL))
	c.SetSessionKey("sk-1")

	if err := c.UpdateNowPlaying(context.Background(), ScrobbleTrack{Artist: "A", Track: "T"}); err != nil {
		t.Fatalf("UpdateNowPlaying failed: %v", err)
	}
	if got.form.Get("method") != "track.updateNowPlaying" {
		t.Errorf("method = %q", got.form.Get("method"))
	}
	if _, ok := got.form["album"]; ok {
		t.Error("album should be omitted when empty")
	}
}

func TestPost_ServiceError(t *testing.T) {
	srv := newTestServer(t, `<lfm status="failed"><error code="9">Invalid session key - Please re-authenticate</error></lfm>`, nil)

	c := New("key", "secret", WithEndpoint(srv.URL))
	c.SetSessionKey("stale")

	err := c.Scrobble(context.Background(), ScrobbleTrack{Artist: "A", Track: "T", Timestamp: time.Now()})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 9 {
		t.Errorf("Code = %d, want 9", apiErr.Code)
	}
	if apiErr.Message != "Invalid session key - Please re-authenticate" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if !IsCredentialError(err) {
		t.Error("code 9 should be a credential error")
	}
}

func TestPost_TransientServiceError(t *testing.T) {
	srv := newTestServer(t, `<lfm status="failed"><error code="16">Service temporarily unavailable</error></lfm>`, nil)

	c := New("key", "secret", WithEndpoint(srv.URL))
	c.SetSessionKey("sk")

	err := c.UpdateNowPlaying(context.Background(), ScrobbleTrack{Artist: "A", Track: "T"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsCredentialError(err) {
		t.Error("code 16 should not be a credential error")
	}
}

func TestPost_GarbageResponse(t *testing.T) {
	srv := newTestServer(t, `<html>bad gateway</html>`, nil)

	c := New("key", "secret", WithEndpoint(srv.URL))
	c.SetSessionKey("sk")

	if err := c.Scrobble(context.Background(), ScrobbleTrack{Artist: "A", Track: "T"}); err == nil {
		t.Error("expected error for non-lfm response")
	}
}

func TestPost_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New("key", "secret", WithEndpoint(srv.URL))
	c.SetSessionKey("sk")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Scrobble(ctx, ScrobbleTrack{Artist: "A", Track: "T"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRequiresSession(t *testing.T) {
	c := New("key", "secret", WithEndpoint("http://127.0.0.1:0"))
	ctx := context.Background()

	if err := c.Scrobble(ctx, ScrobbleTrack{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Scrobble: expected ErrNotAuthenticated, got %v", err)
	}
	if err := c.UpdateNowPlaying(ctx, ScrobbleTrack{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("UpdateNowPlaying: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := c.ValidateSession(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("ValidateSession: expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAPIError_Credential(t *testing.T) {
	for _, code := range []int{4, 9, 10, 14, 26} {
		if !(&APIError{Code: code}).Credential() {
			t.Errorf("code %d should be a credential error", code)
		}
	}
	for _, code := range []int{6, 8, 11, 16, 29} {
		if (&APIError{Code: code}).Credential() {
			t.Errorf("code %d should not be a credential error", code)
		}
	}
}
