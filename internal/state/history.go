package state

import (
	"context"
	"database/sql"
	"time"

	"github.com/llehouerou/lastcord/internal/db"
)

// HistoryEntry is one accepted scrobble.
type HistoryEntry struct {
	ID          int64
	Artist      string
	Track       string
	Album       string
	Timestamp   time.Time // when the track started playing
	SubmittedAt time.Time
}

// AddHistory records an accepted scrobble.
func (m *Manager) AddHistory(ctx context.Context, e HistoryEntry) error {
	submitted := e.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO scrobble_history (artist, track, album, timestamp, submitted_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.Artist, e.Track, db.NullString(e.Album), e.Timestamp.Unix(), submitted.Unix())
	return err
}

// ListHistory returns the most recent scrobbles, newest first.
func (m *Manager) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, artist, track, album, timestamp, submitted_at
		FROM scrobble_history
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var album sql.NullString
		var timestamp, submitted int64
		if err := rows.Scan(&e.ID, &e.Artist, &e.Track, &album, &timestamp, &submitted); err != nil {
			return nil, err
		}
		e.Album = db.NullStringValue(album)
		e.Timestamp = time.Unix(timestamp, 0)
		e.SubmittedAt = time.Unix(submitted, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
