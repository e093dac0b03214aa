// Package logging sets up the slog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const appName = "lastcord"

// Options controls where logs go.
type Options struct {
	Level  string // "debug", "info", "warn" or "error"
	Dir    string // defaults to StateDir()
	Stderr bool   // also write to stderr
	Now    func() time.Time
}

// Setup creates a logger writing to a daily log file in the state directory.
// The caller is responsible for closing the returned closer.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	dir := opts.Dir
	if dir == "" {
		dir = StateDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	path := filepath.Join(dir, FileName(now()))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var w io.Writer = f
	if opts.Stderr {
		w = io.MultiWriter(f, os.Stderr)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return slog.New(handler), f, nil
}

// StateDir returns the lastcord state directory ($XDG_STATE_HOME/lastcord).
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// FileName returns the log file name for the day of t.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s-%s.log", appName, t.Format("20060102"))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
