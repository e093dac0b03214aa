package lastfm

import (
	"errors"
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
)

var (
	// ErrNotAuthenticated is returned when an operation requires authentication.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound is returned when Last.fm has no data for a track.
	ErrNotFound = errors.New("track not found")
	// ErrInvalidCredentials is returned when a login or session is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Last.fm error codes.
const (
	codeInvalidParameters = 6
	codeAuthFailed        = 4
	codeInvalidSession    = 9
	codeInvalidAPIKey     = 10
	codeUnauthorizedToken = 14
	codeSuspendedAPIKey   = 26
)

// APIError is a failure reported by the Last.fm web service.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("last.fm error %d: %s", e.Code, e.Message)
}

// Credential reports whether the error means the API key or session is unusable.
func (e *APIError) Credential() bool {
	return isCredentialCode(e.Code)
}

func (e *APIError) Unwrap() error {
	if e.Credential() {
		return ErrInvalidCredentials
	}
	return nil
}

func isCredentialCode(code int) bool {
	switch code {
	case codeAuthFailed, codeInvalidSession, codeInvalidAPIKey, codeUnauthorizedToken, codeSuspendedAPIKey:
		return true
	}
	return false
}

// IsCredentialError reports whether err means stored credentials are unusable.
// Everything else is treated as transient.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNotAuthenticated)
}

// fromLibrary converts errors returned by lastfm-go into this package's errors.
func fromLibrary(err error) error {
	var lfmErr *lastfm.LastfmError
	if !errors.As(err, &lfmErr) {
		return err
	}
	return &APIError{Code: lfmErr.Code, Message: lfmErr.Message}
}
