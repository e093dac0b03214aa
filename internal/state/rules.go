package state

import (
	"context"
	"database/sql"

	"github.com/llehouerou/lastcord/internal/db"
	"github.com/llehouerou/lastcord/internal/plugin"
)

// LoadRules returns the stored rules in configured order.
func (m *Manager) LoadRules(ctx context.Context) ([]plugin.Definition, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, process_name, pattern, artist_group, title_group, enabled
		FROM rules
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []plugin.Definition
	for rows.Next() {
		var d plugin.Definition
		var enabled int
		if err := rows.Scan(&d.ID, &d.ProcessName, &d.Pattern, &d.ArtistGroup, &d.TitleGroup, &enabled); err != nil {
			return nil, err
		}
		d.Enabled = enabled != 0
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// SaveRules replaces the stored rules; slice order becomes rule priority.
func (m *Manager) SaveRules(ctx context.Context, defs []plugin.Definition) error {
	return db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO rules (id, position, process_name, pattern, artist_group, title_group, enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		var maxID int64
		for i, d := range defs {
			if _, err := stmt.ExecContext(ctx,
				d.ID, i, d.ProcessName, d.Pattern, d.ArtistGroup, d.TitleGroup, db.BoolInt(d.Enabled),
			); err != nil {
				return err
			}
			maxID = max(maxID, d.ID)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE rules_meta SET revision = revision + 1, last_id = MAX(last_id, ?) WHERE id = 1
		`, maxID)
		return err
	})
}

// NextRuleID reserves a rule ID. IDs are never reused, even after the rule
// holding one is removed.
func (m *Manager) NextRuleID(ctx context.Context) (int64, error) {
	var id int64
	err := m.db.QueryRowContext(ctx,
		`UPDATE rules_meta SET last_id = last_id + 1 WHERE id = 1 RETURNING last_id`,
	).Scan(&id)
	return id, err
}

// RulesRevision returns a counter that changes whenever the stored rules do,
// whichever process saved them.
func (m *Manager) RulesRevision(ctx context.Context) (int64, error) {
	var rev int64
	err := m.db.QueryRowContext(ctx, `SELECT revision FROM rules_meta WHERE id = 1`).Scan(&rev)
	return rev, err
}
