package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/llehouerou/lastcord/internal/db"
)

// DiscordToken is the stored Discord credential.
type DiscordToken struct {
	Username string
	Token    string
	LinkedAt time.Time
}

// GetDiscordToken returns the stored token, or nil if none is stored.
func (m *Manager) GetDiscordToken(ctx context.Context) (*DiscordToken, error) {
	var username sql.NullString
	var token string
	var linkedAt int64

	err := m.db.QueryRowContext(ctx, `
		SELECT username, token, linked_at FROM discord_token WHERE id = 1
	`).Scan(&username, &token, &linkedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil token means not linked
	}
	if err != nil {
		return nil, err
	}

	return &DiscordToken{
		Username: db.NullStringValue(username),
		Token:    token,
		LinkedAt: time.Unix(linkedAt, 0),
	}, nil
}

// SaveDiscordToken stores a validated token.
func (m *Manager) SaveDiscordToken(ctx context.Context, username, token string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO discord_token (id, username, token, linked_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			token = excluded.token,
			linked_at = excluded.linked_at
	`, db.NullString(username), token, time.Now().Unix())
	return err
}

// DeleteDiscordToken removes the stored token.
func (m *Manager) DeleteDiscordToken(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM discord_token WHERE id = 1`)
	return err
}
