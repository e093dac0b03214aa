package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when presence is set before the handshake completes.
	ErrNotReady = errors.New("gateway not ready")
	// ErrAlreadyConnected is returned when Connect is called twice on one client.
	ErrAlreadyConnected = errors.New("gateway client already used")
	// ErrInvalidToken is returned when the token is rejected.
	ErrInvalidToken = errors.New("invalid discord token")
)

// Close codes.
const (
	CloseNormal   = 1000
	CloseAbnormal = 1006
	// CloseAuthFailed is sent by the server when identify carries a bad token.
	CloseAuthFailed = 4004
)

// CloseError records why a connection ended.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("gateway closed (%d)", e.Code)
	}
	return fmt.Sprintf("gateway closed (%d): %s", e.Code, e.Reason)
}

// IsAuthFailure reports whether err means the token was rejected, either by
// the REST API or by the gateway closing with CloseAuthFailed.
func IsAuthFailure(err error) bool {
	if errors.Is(err, ErrInvalidToken) {
		return true
	}
	var ce *CloseError
	return errors.As(err, &ce) && ce.Code == CloseAuthFailed
}
