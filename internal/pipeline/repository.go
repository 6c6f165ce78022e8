package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrRunNotFound is returned when no training run has the requested id
var ErrRunNotFound = errors.New("training run not found")

const runColumns = `
	id, status, window_mode, fingerprint, transactions, feature_rows, uncovered,
	train_rows, test_rows, mae, model_version, artifact_path,
	COALESCE(error_message, '') AS error_message, started_at, completed_at`

// Repository handles database operations for training run tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new training run repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun inserts a new training run record
func (r *Repository) CreateRun(ctx context.Context, run *TrainingRun) error {
	query := `
		INSERT INTO training_runs (
			id, status, window_mode, fingerprint, transactions, feature_rows,
			uncovered, train_rows, test_rows, mae, model_version, artifact_path,
			error_message, started_at, completed_at
		) VALUES (
			:id, :status, :window_mode, :fingerprint, :transactions, :feature_rows,
			:uncovered, :train_rows, :test_rows, :mae, :model_version, :artifact_path,
			NULLIF(:error_message, ''), :started_at, :completed_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to create training run: %w", err)
	}
	return nil
}

// UpdateRun updates an existing training run
func (r *Repository) UpdateRun(ctx context.Context, run *TrainingRun) error {
	query := `
		UPDATE training_runs
		SET status = :status, fingerprint = :fingerprint, transactions = :transactions,
		    feature_rows = :feature_rows, uncovered = :uncovered, train_rows = :train_rows,
		    test_rows = :test_rows, mae = :mae, model_version = :model_version,
		    artifact_path = :artifact_path, error_message = NULLIF(:error_message, ''),
		    completed_at = :completed_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("failed to update training run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a training run by ID
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (*TrainingRun, error) {
	run := &TrainingRun{}
	err := r.db.GetContext(ctx, run, `SELECT `+runColumns+` FROM training_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []TrainingRun{}
	query := `SELECT ` + runColumns + ` FROM training_runs ORDER BY started_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	return runs, nil
}
