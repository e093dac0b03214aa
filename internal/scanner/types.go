package scanner

import "context"

// NoTitle is the window title reported for processes without a visible window.
const NoTitle = "N/A"

// Record is one running process with a visible window title.
type Record struct {
	ProcessName string
	WindowTitle string
}

// Lister produces the raw, unfiltered process list.
type Lister interface {
	List(ctx context.Context) ([]Record, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context) ([]Record, error)

// List calls f(ctx).
func (f ListerFunc) List(ctx context.Context) ([]Record, error) {
	return f(ctx)
}
