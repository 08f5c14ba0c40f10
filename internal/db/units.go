package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/codex-pipeline/internal/types"
)

const unitColumns = `id, status, source_text, source_kind, codex_id, record,
        processing_error, error_detail, batch_id, created_at, updated_at`

// GetUnit retrieves a processing unit by id
func (db *DB) GetUnit(ctx context.Context, id string) (*types.ProcessingUnit, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+unitColumns+` FROM units WHERE id = $1`,
		id,
	)
	u, err := scanUnit(row)
	if err != nil {
		return nil, notFound(err, "unit "+id)
	}
	return u, nil
}

// PutUnit creates or replaces a processing unit
func (db *DB) PutUnit(ctx context.Context, u *types.ProcessingUnit) error {
	var record []byte
	if u.Record != nil {
		var err error
		record, err = json.Marshal(u.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO units (`+unitColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		     status = $2, source_text = $3, source_kind = $4, record = $6,
		     processing_error = $7, error_detail = $8, updated_at = $11`,
		u.ID, string(u.Status), u.SourceText, string(u.SourceKind), u.CodexID, record,
		u.ProcessingError, u.ErrorDetail, u.BatchID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save unit %s: %w", u.ID, err)
	}
	return nil
}

// ListUnitsByBatch returns a batch's units in creation order
func (db *DB) ListUnitsByBatch(ctx context.Context, batchID string) ([]*types.ProcessingUnit, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+unitColumns+` FROM units WHERE batch_id = $1 ORDER BY created_at, id`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var out []*types.ProcessingUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return out, nil
}

func scanUnit(row pgx.Row) (*types.ProcessingUnit, error) {
	var u types.ProcessingUnit
	var status, kind string
	var record []byte
	err := row.Scan(&u.ID, &status, &u.SourceText, &kind, &u.CodexID, &record,
		&u.ProcessingError, &u.ErrorDetail, &u.BatchID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Status = types.UnitStatus(status)
	u.SourceKind = types.SourceKind(kind)
	if record != nil {
		if err := json.Unmarshal(record, &u.Record); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
	}
	return &u, nil
}
