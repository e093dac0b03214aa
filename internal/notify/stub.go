//go:build !linux

package notify

import "errors"

// NewDesktop reports that desktop notifications need a D-Bus session.
func NewDesktop() (Sender, error) {
	return nil, errors.New("desktop notifications are only supported on linux")
}
