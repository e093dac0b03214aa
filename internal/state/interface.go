package state

import (
	"context"
	"database/sql"
	"time"

	"github.com/llehouerou/lastcord/internal/plugin"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	DB() *sql.DB
	plugin.Store
	GetLastfmSession(ctx context.Context) (*LastfmSession, error)
	SaveLastfmSession(ctx context.Context, username, sessionKey string) error
	DeleteLastfmSession(ctx context.Context) error
	GetDiscordToken(ctx context.Context) (*DiscordToken, error)
	SaveDiscordToken(ctx context.Context, username, token string) error
	DeleteDiscordToken(ctx context.Context) error
	AddPendingScrobble(ctx context.Context, s PendingScrobble) error
	GetPendingScrobbles(ctx context.Context) ([]PendingScrobble, error)
	DeletePendingScrobble(ctx context.Context, id int64) error
	UpdatePendingScrobbleAttempt(ctx context.Context, id int64, errMsg string) error
	DeleteOldPendingScrobbles(ctx context.Context, maxAge time.Duration) (int64, error)
	AddHistory(ctx context.Context, e HistoryEntry) error
	ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
