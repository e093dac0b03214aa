package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/events"
)

const scrobbleExpire = 4 * time.Second

// ReporterConfig controls which events become notifications.
type ReporterConfig struct {
	// Important decides whether an error deserves a notification. Nil
	// notifies on every error.
	Important  func(err error) bool
	OnScrobble bool
	Logger     *slog.Logger
}

// Reporter turns bus events into desktop notifications. Error notifications
// replace each other so a failing component does not pile them up, and the
// last one is withdrawn once a scrobble goes through again.
type Reporter struct {
	sender  Sender
	cfg     ReporterConfig
	logger  *slog.Logger
	lastErr uint32
}

// NewReporter creates a reporter sending through s.
func NewReporter(s Sender, cfg ReporterConfig) *Reporter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{sender: s, cfg: cfg, logger: logger.With("component", "notify")}
}

// Run consumes sub until ctx is done or the subscription ends.
func (r *Reporter) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case e := <-sub.Error:
			r.HandleError(e)
		case e := <-sub.Scrobbled:
			r.HandleScrobble(e)
		}
	}
}

// HandleError notifies about e if it is important.
func (r *Reporter) HandleError(e events.ErrorEvent) {
	if e.Err == nil {
		return
	}
	if r.cfg.Important != nil && !r.cfg.Important(e.Err) {
		return
	}
	id, err := r.sender.Send(Message{
		Summary:  "lastcord",
		Body:     errmsg.Format(errmsg.Op(e.Operation), e.Err),
		Category: CategoryError,
		Urgency:  UrgencyCritical,
		Expire:   -1,
		Replaces: r.lastErr,
	})
	if err != nil {
		r.logger.Warn("notification failed", "error", err)
		return
	}
	r.lastErr = id
}

// HandleScrobble clears a standing error notification after a successful
// scrobble and notifies about it when enabled.
func (r *Reporter) HandleScrobble(e events.ScrobbleResult) {
	if e.Err != nil {
		return
	}
	if r.lastErr != 0 {
		if err := r.sender.Dismiss(r.lastErr); err != nil {
			r.logger.Debug("dismiss notification", "id", r.lastErr, "error", err)
		}
		r.lastErr = 0
	}
	if !r.cfg.OnScrobble {
		return
	}
	_, err := r.sender.Send(Message{
		Summary:  "Scrobbled",
		Body:     fmt.Sprintf("%s - %s", e.Track.Artist, e.Track.Title),
		Category: CategoryScrobble,
		Urgency:  UrgencyLow,
		Expire:   scrobbleExpire,
	})
	if err != nil {
		r.logger.Warn("notification failed", "error", err)
	}
}
