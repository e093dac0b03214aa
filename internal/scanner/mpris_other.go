//go:build !linux

package scanner

import (
	"context"
	"errors"
	"time"
)

// MPRISLister is unavailable outside Linux.
type MPRISLister struct{}

// NewMPRISLister always fails outside Linux.
func NewMPRISLister(time.Duration) (*MPRISLister, error) {
	return nil, errors.New("mpris requires linux")
}

// List returns nothing.
func (m *MPRISLister) List(context.Context) ([]Record, error) {
	return nil, nil
}

// Close is a no-op.
func (m *MPRISLister) Close() error {
	return nil
}
