package scrobble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/llehouerou/lastcord/internal/lastfm"
	"github.com/llehouerou/lastcord/internal/state"
)

const (
	// DefaultMaxAttempts is how many times a pending scrobble is retried.
	DefaultMaxAttempts = 10
	// DefaultMaxAge is how old a play may be before Last.fm rejects it.
	DefaultMaxAge = 14 * 24 * time.Hour
	// DefaultRetryInterval is the delay between retry passes.
	DefaultRetryInterval = 5 * time.Minute
)

// Submitter sends a scrobble.
type Submitter interface {
	Scrobble(ctx context.Context, track lastfm.ScrobbleTrack) error
}

// PendingQueue is the persistent queue of failed scrobbles.
type PendingQueue interface {
	GetPendingScrobbles(ctx context.Context) ([]state.PendingScrobble, error)
	DeletePendingScrobble(ctx context.Context, id int64) error
	UpdatePendingScrobbleAttempt(ctx context.Context, id int64, errMsg string) error
	DeleteOldPendingScrobbles(ctx context.Context, maxAge time.Duration) (int64, error)
}

// RetryResult summarizes one retry pass.
type RetryResult struct {
	Succeeded int
	Failed    int
	Skipped   int // exhausted their attempts
	Expired   int64
}

// RetrierConfig configures a Retrier.
type RetrierConfig struct {
	Submitter   Submitter
	Queue       PendingQueue
	History     HistoryStore
	MaxAttempts int
	MaxAge      time.Duration
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Retrier resubmits queued scrobbles.
type Retrier struct {
	submitter   Submitter
	queue       PendingQueue
	history     HistoryStore
	maxAttempts int
	maxAge      time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewRetrier creates a Retrier, applying defaults for zero values.
func NewRetrier(cfg RetrierConfig) *Retrier {
	r := &Retrier{
		submitter:   cfg.Submitter,
		queue:       cfg.Queue,
		history:     cfg.History,
		maxAttempts: cfg.MaxAttempts,
		maxAge:      cfg.MaxAge,
		callTimeout: cfg.CallTimeout,
		logger:      cfg.Logger,
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = DefaultMaxAttempts
	}
	if r.maxAge <= 0 {
		r.maxAge = DefaultMaxAge
	}
	if r.callTimeout <= 0 {
		r.callTimeout = DefaultCallTimeout
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	r.logger = r.logger.With("component", "retry")
	return r
}

// Retry drops expired entries and resubmits the rest in queue order. A
// credential error stops the pass, since every remaining entry would fail
// the same way.
func (r *Retrier) Retry(ctx context.Context) (RetryResult, error) {
	var res RetryResult

	expired, err := r.queue.DeleteOldPendingScrobbles(ctx, r.maxAge)
	if err != nil {
		return res, fmt.Errorf("drop expired scrobbles: %w", err)
	}
	res.Expired = expired

	pending, err := r.queue.GetPendingScrobbles(ctx)
	if err != nil {
		return res, fmt.Errorf("load pending scrobbles: %w", err)
	}

	for i := range pending {
		p := &pending[i]
		if p.Attempts >= r.maxAttempts {
			res.Skipped++
			continue
		}

		track := lastfm.ScrobbleTrack{
			Artist:    p.Artist,
			Track:     p.Track,
			Album:     p.Album,
			Duration:  p.Duration,
			Timestamp: p.Timestamp,
		}

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		err := r.submitter.Scrobble(callCtx, track)
		cancel()

		if err != nil {
			res.Failed++
			if uerr := r.queue.UpdatePendingScrobbleAttempt(ctx, p.ID, err.Error()); uerr != nil {
				r.logger.Warn("update pending scrobble failed", "id", p.ID, "error", uerr)
			}
			if lastfm.IsCredentialError(err) {
				return res, err
			}
			continue
		}

		res.Succeeded++
		if err := r.queue.DeletePendingScrobble(ctx, p.ID); err != nil {
			r.logger.Warn("delete pending scrobble failed", "id", p.ID, "error", err)
		}
		if r.history != nil {
			if err := r.history.AddHistory(ctx, state.HistoryEntry{
				Artist:    p.Artist,
				Track:     p.Track,
				Album:     p.Album,
				Timestamp: p.Timestamp,
			}); err != nil {
				r.logger.Warn("record history failed", "error", err)
			}
		}
	}

	if res.Succeeded+res.Failed+int(res.Expired) > 0 {
		r.logger.Info("pending scrobbles retried",
			"succeeded", res.Succeeded, "failed", res.Failed,
			"skipped", res.Skipped, "expired", res.Expired)
	}
	return res, nil
}
