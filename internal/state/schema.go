package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS rules (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			process_name TEXT NOT NULL,
			pattern TEXT NOT NULL,
			artist_group INTEGER NOT NULL,
			title_group INTEGER NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position);

		-- revision changes on every save; last_id is the highest rule ID ever handed out
		CREATE TABLE IF NOT EXISTS rules_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			revision INTEGER NOT NULL,
			last_id INTEGER NOT NULL
		);
		INSERT OR IGNORE INTO rules_meta (id, revision, last_id)
			SELECT 1, 0, COALESCE(MAX(id), 0) FROM rules;

		CREATE TABLE IF NOT EXISTS lastfm_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			username TEXT NOT NULL,
			session_key TEXT NOT NULL,
			linked_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS discord_token (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			username TEXT,
			token TEXT NOT NULL,
			linked_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS lastfm_pending_scrobbles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT,
			duration_seconds INTEGER,
			timestamp INTEGER NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS scrobble_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT,
			timestamp INTEGER NOT NULL,
			submitted_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON scrobble_history(timestamp);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
