package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
)

// ImportRunRepository persists the history of CSV import batches.
type ImportRunRepository struct {
	db *sql.DB
}

// NewImportRunRepository creates a new [ImportRunRepository] with the given database connection
func NewImportRunRepository(db *sql.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

// Create inserts run, generating its ID when empty.
func (r *ImportRunRepository) Create(run *models.ImportRun) error {
	if run.Kind == "" {
		return fmt.Errorf("validation failed: kind is required")
	}
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}

	query := `
		INSERT INTO import_runs (id, kind, source, total, created, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, run.ID, run.Kind, run.Source, run.Total, run.Created, run.Failed, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}

	return nil
}

// Get retrieves an import run by ID.
func (r *ImportRunRepository) Get(id string) (*models.ImportRun, error) {
	query := `
		SELECT id, kind, source, total, created, failed, started_at, finished_at
		FROM import_runs
		WHERE id = ?
	`

	run, err := scanImportRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: import run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query import run: %w", err)
	}

	return run, nil
}

// List returns import runs newest first, optionally filtered by kind. A limit below 1 returns every run.
func (r *ImportRunRepository) List(kind string, limit int) ([]*models.ImportRun, error) {
	query := `
		SELECT id, kind, source, total, created, failed, started_at, finished_at
		FROM import_runs
	`

	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImportRun(s scanner) (*models.ImportRun, error) {
	var run models.ImportRun
	err := s.Scan(&run.ID, &run.Kind, &run.Source, &run.Total, &run.Created, &run.Failed, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
