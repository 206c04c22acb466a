// ABOUTME: Stage list persistence
// ABOUTME: The whole ordered list is replaced in a single transaction on save
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/pipecrm/models"
)

// LoadStages returns the saved stages in order, or nil when none were saved.
func (s *Store) LoadStages(ctx context.Context) ([]models.Stage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, color FROM stages ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.Stage
	for rows.Next() {
		var st models.Stage
		if err := rows.Scan(&st.ID, &st.Title, &st.Color); err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *Store) SaveStages(ctx context.Context, stages []models.Stage) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM stages`); err != nil {
			return err
		}
		for i, st := range stages {
			if _, err := tx.ExecContext(ctx, `INSERT INTO stages (position, id, title, color) VALUES (?, ?, ?, ?)`,
				i, st.ID, st.Title, st.Color); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save stages: %w", err)
	}
	return nil
}
