package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/bitsync/internal/shared"
)

// Run is one recorded CLI invocation.
type Run struct {
	ID             string    `json:"id"`
	Command        string    `json:"command"`
	TableID        string    `json:"table_id"`
	Count          int       `json:"count"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunRepository records run history and scan checkpoints.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a RunRepository with the given database connection.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// RecordRun inserts a run row, generating its id.
func (r *RunRepository) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (id, command, table_id, count, skipped, failed, elapsed_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		run.ID, run.Command, run.TableID, run.Count, run.Skipped, run.Failed,
		run.ElapsedSeconds, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepository) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, command, table_id, count, skipped, failed, elapsed_seconds, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Command, &run.TableID, &run.Count, &run.Skipped,
			&run.Failed, &run.ElapsedSeconds, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveCheckpoint stores the remaining scan cursor for a table. An empty
// token clears the checkpoint.
func (r *RunRepository) SaveCheckpoint(tableID, pageToken string) error {
	if pageToken == "" {
		_, err := r.db.Exec("DELETE FROM checkpoints WHERE table_id = ?", tableID)
		if err != nil {
			return fmt.Errorf("failed to clear checkpoint: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO checkpoints (table_id, page_token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(table_id) DO UPDATE SET page_token = excluded.page_token, updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query, tableID, pageToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the stored cursor for a table, or "" when none
// exists or the lookup fails. Failures read as empty on purpose: resume
// state only avoids re-downloading pages, and a lost checkpoint merely
// restarts the scan from the beginning.
func (r *RunRepository) LoadCheckpoint(tableID string) string {
	var token string
	err := r.db.QueryRow("SELECT page_token FROM checkpoints WHERE table_id = ?", tableID).Scan(&token)
	if err != nil {
		return ""
	}
	return token
}
