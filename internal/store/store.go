// Package store keeps cue sheet projects in a local sqlite database. It
// implements the session backing store, the pattern suggestion provider and
// the annotation store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/session"
)

var ErrProjectNotFound = errors.New("project not found")

type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// ProjectSummary is one line of the project picker.
type ProjectSummary struct {
	ID        string
	Name      string
	Episode   string
	Cues      int
	UpdatedAt time.Time
}

// Open opens (creating when needed) the database at path and migrates it.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			production TEXT NOT NULL DEFAULT '',
			episode TEXT NOT NULL DEFAULT '',
			air_date TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS cues (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			hidden INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			PRIMARY KEY (project_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS cue_fields (
			project_id TEXT NOT NULL,
			cue_id TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 1,
			PRIMARY KEY (project_id, cue_id, field),
			FOREIGN KEY (project_id, cue_id) REFERENCES cues(project_id, id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS cue_fields_lookup ON cue_fields(field, value);`,
		`CREATE TABLE IF NOT EXISTS annotations (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			color TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS annotation_rows (
			annotation_id TEXT NOT NULL REFERENCES annotations(id) ON DELETE CASCADE,
			cue_id TEXT NOT NULL,
			PRIMARY KEY (annotation_id, cue_id)
		);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("cue store migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateProject inserts an empty project and returns its id.
func (s *Store) CreateProject(ctx context.Context, info session.ProjectInfo) (string, error) {
	if s == nil || s.db == nil {
		return "", session.ErrNoBackingStore
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects (id, name, production, episode, air_date, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, info.Name, info.Production, info.Episode, info.AirDate, info.Notes)
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT p.id, p.name, p.episode, p.updated_at,
			(SELECT COUNT(*) FROM cues c WHERE c.project_id = p.id)
		FROM projects p ORDER BY p.updated_at DESC, p.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Episode, &p.UpdatedAt, &p.Cues); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
	return err
}

// LoadDocument reads a project with its cues in display order.
func (s *Store) LoadDocument(ctx context.Context, projectID string) (session.Payload, error) {
	if s == nil || s.db == nil {
		return session.Payload{}, session.ErrNoBackingStore
	}
	var p session.Payload
	err := s.db.QueryRowContext(ctx, `SELECT name, production, episode, air_date, notes
		FROM projects WHERE id = ?`, projectID).
		Scan(&p.Info.Name, &p.Info.Production, &p.Info.Episode, &p.Info.AirDate, &p.Info.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Payload{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if err != nil {
		return session.Payload{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, order_index, hidden FROM cues
		WHERE project_id = ? ORDER BY order_index ASC`, projectID)
	if err != nil {
		return session.Payload{}, err
	}
	index := make(map[string]int)
	for rows.Next() {
		var (
			id     string
			order  int
			hidden bool
		)
		if err := rows.Scan(&id, &order, &hidden); err != nil {
			rows.Close()
			return session.Payload{}, err
		}
		c := cue.New(id)
		c.OrderIndex = len(p.Rows)
		c.Hidden = hidden
		index[id] = len(p.Rows)
		p.Rows = append(p.Rows, c)
	}
	if err := rows.Close(); err != nil {
		return session.Payload{}, err
	}

	fields, err := s.db.QueryContext(ctx, `SELECT cue_id, field, value, source, confidence
		FROM cue_fields WHERE project_id = ?`, projectID)
	if err != nil {
		return session.Payload{}, err
	}
	defer fields.Close()
	for fields.Next() {
		var (
			cueID, key, value, source string
			confidence                float64
		)
		if err := fields.Scan(&cueID, &key, &value, &source, &confidence); err != nil {
			return session.Payload{}, err
		}
		i, ok := index[cueID]
		f, known := cue.ParseField(key)
		if !ok || !known {
			s.logger.Warn("dropping stray cue field", "project", projectID, "cue", cueID, "field", key)
			continue
		}
		p.Rows[i].Set(f, value, cue.ParseSource(source), confidence)
	}
	if err := fields.Err(); err != nil {
		return session.Payload{}, err
	}
	s.logger.Debug("loaded project", "project", projectID, "cues", len(p.Rows))
	return p, nil
}

// SaveDocument replaces the stored project with payload in one transaction.
func (s *Store) SaveDocument(ctx context.Context, projectID string, payload session.Payload) error {
	if s == nil || s.db == nil {
		return session.ErrNoBackingStore
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	info := payload.Info
	if _, err := tx.ExecContext(ctx, `INSERT INTO projects (id, name, production, episode, air_date, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			production = excluded.production,
			episode = excluded.episode,
			air_date = excluded.air_date,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP`,
		projectID, info.Name, info.Production, info.Episode, info.AirDate, info.Notes); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cue_fields WHERE project_id = ?`, projectID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cues WHERE project_id = ?`, projectID); err != nil {
		return err
	}

	cueStmt, err := tx.PrepareContext(ctx, `INSERT INTO cues (project_id, id, order_index, hidden, status)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cueStmt.Close()
	fieldStmt, err := tx.PrepareContext(ctx, `INSERT INTO cue_fields (project_id, cue_id, field, value, source, confidence)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer fieldStmt.Close()

	for i, c := range payload.Rows {
		if strings.TrimSpace(c.ID) == "" {
			continue
		}
		if _, err := cueStmt.ExecContext(ctx, projectID, c.ID, i, c.Hidden, c.Status.String()); err != nil {
			return fmt.Errorf("save cue %s: %w", c.ID, err)
		}
		for _, f := range cue.Fields() {
			p := c.Provenance(f)
			if c.Value(f) == "" && p.Source == cue.SourceUser && p.Confidence >= 1 {
				continue
			}
			if _, err := fieldStmt.ExecContext(ctx, projectID, c.ID, f.Key(), c.Value(f), p.Source.String(), p.Confidence); err != nil {
				return fmt.Errorf("save cue %s field %s: %w", c.ID, f.Key(), err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("saved project", "project", projectID, "cues", len(payload.Rows))
	return nil
}
