package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"liquiditymining/internal/models"
)

const runColumns = `id, status, cases, proposal_id, staking_pool, error_message,
		       created_at, started_at, finished_at`

// ==================== Run Queries ====================

// CreateRun inserts a queued run and sets its ID
func (db *DB) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO runs (status, cases, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return db.QueryRowContext(ctx, query, run.Status, run.Cases, run.CreatedAt).Scan(&run.ID)
}

// GetRun retrieves a run by ID, nil when absent
func (db *DB) GetRun(ctx context.Context, id int64) (*models.Run, error) {
	var run models.Run
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	err := db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves runs newest first
func (db *DB) ListRuns(ctx context.Context, limit, offset int) ([]models.Run, error) {
	var runs []models.Run
	query := `
		SELECT ` + runColumns + `
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	err := db.SelectContext(ctx, &runs, query, limit, offset)
	return runs, err
}

// NextQueuedRun retrieves the oldest queued run, nil when none is queued
func (db *DB) NextQueuedRun(ctx context.Context) (*models.Run, error) {
	var run models.Run
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	err := db.GetContext(ctx, &run, query, models.RunStatusQueued)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// MarkRunStarted moves a queued run to RUNNING, reporting whether this call won
func (db *DB) MarkRunStarted(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE runs
		SET status = $1, started_at = NOW()
		WHERE id = $2 AND status = $3
	`
	res, err := db.ExecContext(ctx, query, models.RunStatusRunning, id, models.RunStatusQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FinishRun stores the final run state and its case results atomically
func (db *DB) FinishRun(ctx context.Context, run *models.Run, results []models.CaseResult) error {
	return db.InTransaction(func(tx *sqlx.Tx) error {
		query := `
			UPDATE runs
			SET status = $1, proposal_id = $2, staking_pool = $3,
			    error_message = $4, finished_at = $5
			WHERE id = $6
		`
		if _, err := tx.ExecContext(ctx, query,
			run.Status,
			run.ProposalID,
			run.StakingPool,
			run.ErrorMessage,
			run.FinishedAt,
			run.ID,
		); err != nil {
			return err
		}

		for i := range results {
			if err := addCaseResult(ctx, tx, &results[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ==================== Case Result Queries ====================

func addCaseResult(ctx context.Context, tx *sqlx.Tx, result *models.CaseResult) error {
	query := `
		INSERT INTO run_cases (run_id, name, passed, detail, reward_delta, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, name) DO UPDATE
		SET passed = EXCLUDED.passed, detail = EXCLUDED.detail,
		    reward_delta = EXCLUDED.reward_delta, duration_ms = EXCLUDED.duration_ms
		RETURNING id
	`
	return tx.QueryRowContext(ctx, query,
		result.RunID,
		result.Name,
		result.Passed,
		result.Detail,
		result.RewardDelta,
		result.DurationMS,
	).Scan(&result.ID)
}

// GetCaseResults retrieves the case results of a run in execution order
func (db *DB) GetCaseResults(ctx context.Context, runID int64) ([]models.CaseResult, error) {
	var results []models.CaseResult
	query := `
		SELECT id, run_id, name, passed, detail, reward_delta, duration_ms
		FROM run_cases
		WHERE run_id = $1
		ORDER BY id ASC
	`
	err := db.SelectContext(ctx, &results, query, runID)
	return results, err
}
