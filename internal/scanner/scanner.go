package scanner

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Scanner keeps the latest deduplicated process snapshot.
type Scanner struct {
	lister  Lister
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	snapshot []Record
}

// New creates a Scanner backed by the given lister. A single listing is
// abandoned after timeout, DefaultCommandTimeout when zero.
func New(lister Lister, timeout time.Duration, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Scanner{
		lister:  lister,
		timeout: timeout,
		logger:  logger.With("component", "scanner"),
	}
}

// Scan lists processes, filters and deduplicates them, and stores the result.
// When listing fails the previous snapshot is returned unchanged.
func (s *Scanner) Scan(ctx context.Context) []Record {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	raw, err := s.lister.List(ctx)
	cancel()
	if err != nil {
		s.logger.Warn("process listing failed", "error", err)
		return s.Snapshot()
	}

	records := Dedup(raw)

	s.mu.Lock()
	s.snapshot = records
	s.mu.Unlock()

	return clone(records)
}

// Snapshot returns a copy of the latest snapshot.
func (s *Scanner) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.snapshot)
}

// Run scans once per interval until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Dedup drops records without a usable title and keeps the first record for
// each process name, compared case-insensitively.
func Dedup(raw []Record) []Record {
	seen := make(map[string]struct{}, len(raw))
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		title := strings.TrimSpace(r.WindowTitle)
		if title == "" || title == NoTitle {
			continue
		}
		key := strings.ToLower(r.ProcessName)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
