package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/llehouerou/lastcord/internal/db"
)

// LastfmSession is the linked Last.fm account.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// PendingScrobble is a scrobble Last.fm did not accept yet.
type PendingScrobble struct {
	ID        int64
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration // stored with second precision
	Timestamp time.Time     // when the track started playing
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// GetLastfmSession returns the linked session. A nil session and nil error
// mean no account is linked.
func (m *Manager) GetLastfmSession(ctx context.Context) (*LastfmSession, error) {
	var s LastfmSession
	var linked int64
	err := m.db.QueryRowContext(ctx,
		`SELECT username, session_key, linked_at FROM lastfm_session WHERE id = 1`,
	).Scan(&s.Username, &s.SessionKey, &linked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil //nolint:nilnil // not linked
	case err != nil:
		return nil, err
	}
	s.LinkedAt = time.Unix(linked, 0)
	return &s, nil
}

// SaveLastfmSession links an account, replacing any previous one.
func (m *Manager) SaveLastfmSession(ctx context.Context, username, sessionKey string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO lastfm_session (id, username, session_key, linked_at)
		VALUES (1, ?, ?, ?)
	`, username, sessionKey, time.Now().Unix())
	return err
}

// DeleteLastfmSession unlinks the account. It is a no-op when none is linked.
func (m *Manager) DeleteLastfmSession(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM lastfm_session`)
	return err
}

// AddPendingScrobble queues s for a later retry.
func (m *Manager) AddPendingScrobble(ctx context.Context, s PendingScrobble) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO lastfm_pending_scrobbles
			(artist, track, album, duration_seconds, timestamp, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Artist, s.Track, db.NullString(s.Album), int64(s.Duration/time.Second),
		s.Timestamp.Unix(), s.Attempts, db.NullString(s.LastError), time.Now().Unix(),
	)
	return err
}

// GetPendingScrobbles returns the queue, oldest entry first.
func (m *Manager) GetPendingScrobbles(ctx context.Context) ([]PendingScrobble, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, artist, track, album, duration_seconds, timestamp, attempts, last_error, created_at
		FROM lastfm_pending_scrobbles
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queue []PendingScrobble
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		queue = append(queue, p)
	}
	return queue, rows.Err()
}

func scanPending(rows *sql.Rows) (PendingScrobble, error) {
	var (
		p                 PendingScrobble
		album, lastError  sql.NullString
		seconds           sql.NullInt64
		played, createdAt int64
	)
	err := rows.Scan(&p.ID, &p.Artist, &p.Track, &album, &seconds, &played, &p.Attempts, &lastError, &createdAt)
	if err != nil {
		return p, err
	}
	p.Album = db.NullStringValue(album)
	p.LastError = db.NullStringValue(lastError)
	p.Duration = time.Duration(seconds.Int64) * time.Second
	p.Timestamp = time.Unix(played, 0)
	p.CreatedAt = time.Unix(createdAt, 0)
	return p, nil
}

// DeletePendingScrobble drops a queued scrobble once it went through.
func (m *Manager) DeletePendingScrobble(ctx context.Context, id int64) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM lastfm_pending_scrobbles WHERE id = ?`, id)
	return err
}

// UpdatePendingScrobbleAttempt records a failed retry.
func (m *Manager) UpdatePendingScrobbleAttempt(ctx context.Context, id int64, errMsg string) error {
	_, err := m.db.ExecContext(ctx,
		`UPDATE lastfm_pending_scrobbles SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		errMsg, id)
	return err
}

// DeleteOldPendingScrobbles drops scrobbles that started playing more than
// maxAge ago and returns how many went. Last.fm refuses them anyway.
func (m *Manager) DeleteOldPendingScrobbles(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM lastfm_pending_scrobbles WHERE timestamp < ?`,
		time.Now().Add(-maxAge).Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
