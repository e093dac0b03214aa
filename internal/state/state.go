// Package state persists lastcord's rules, credentials and scrobble queues in
// a local SQLite database.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "lastcord"
	dbFileName = "lastcord.db"
)

type Manager struct {
	db *sql.DB
}

// Open opens the database in the XDG data directory.
func Open() (*Manager, error) {
	dbPath, err := DBPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens (and creates if needed) the database at path.
func OpenPath(dbPath string) (*Manager, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Scheduled loops and CLI commands share one handle; serialize writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// DBPath returns the default database location.
func DBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
