package db

import (
	"context"
	"fmt"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// GetBatch retrieves a batch job by id
func (db *DB) GetBatch(ctx context.Context, id string) (*types.BatchJob, error) {
	var b types.BatchJob
	var status string
	err := db.pool.QueryRow(ctx,
		`SELECT id, status, total_units, completed_units, codex_id, concurrency, created_at, updated_at
		 FROM batches WHERE id = $1`,
		id,
	).Scan(&b.ID, &status, &b.TotalUnits, &b.CompletedUnits, &b.CodexID, &b.Concurrency, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "batch "+id)
	}
	b.Status = types.BatchStatus(status)
	return &b, nil
}

// PutBatch creates or replaces a batch job
func (db *DB) PutBatch(ctx context.Context, b *types.BatchJob) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO batches (id, status, total_units, completed_units, codex_id, concurrency, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     status = $2, total_units = $3, completed_units = $4, concurrency = $6, updated_at = $8`,
		b.ID, string(b.Status), b.TotalUnits, b.CompletedUnits, b.CodexID, b.Concurrency, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save batch %s: %w", b.ID, err)
	}
	return nil
}
