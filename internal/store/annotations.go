package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bekirdag/cuesheet/internal/session"
)

// Annotate stores a, replacing any annotation with the same id. An empty id
// gets a fresh one.
func (s *Store) Annotate(ctx context.Context, projectID string, a session.Annotation) error {
	if s == nil || s.db == nil {
		return session.ErrNoBackingStore
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO annotations (id, project_id, color, note) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET color = excluded.color, note = excluded.note`,
		a.ID, projectID, a.Color, a.Note); err != nil {
		return fmt.Errorf("annotate: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM annotation_rows WHERE annotation_id = ?`, a.ID); err != nil {
		return err
	}
	for _, id := range a.RowIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO annotation_rows (annotation_id, cue_id) VALUES (?, ?)`, a.ID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Annotations(ctx context.Context, projectID string) ([]session.Annotation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT a.id, a.color, a.note, r.cue_id
		FROM annotations a LEFT JOIN annotation_rows r ON r.annotation_id = a.id
		WHERE a.project_id = ?
		ORDER BY a.created_at ASC, a.id ASC, r.cue_id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Annotation
	for rows.Next() {
		var (
			a     session.Annotation
			cueID *string
		)
		if err := rows.Scan(&a.ID, &a.Color, &a.Note, &cueID); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].ID != a.ID {
			out = append(out, a)
		}
		if cueID != nil {
			last := &out[len(out)-1]
			last.RowIDs = append(last.RowIDs, *cueID)
		}
	}
	return out, rows.Err()
}
