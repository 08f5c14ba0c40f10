package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// GetCodex retrieves a codex by id
func (db *DB) GetCodex(ctx context.Context, id string) (*types.Codex, error) {
	var body []byte
	err := db.pool.QueryRow(ctx,
		`SELECT body FROM codexes WHERE id = $1`,
		id,
	).Scan(&body)
	if err != nil {
		return nil, notFound(err, "codex "+id)
	}
	return decodeCodex(body)
}

// PutCodex creates or replaces a codex
func (db *DB) PutCodex(ctx context.Context, c *types.Codex) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal codex: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO codexes (id, version, kind, body, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (id) DO UPDATE SET version = $2, kind = $3, body = $4, updated_at = NOW()`,
		c.ID, c.Version, string(c.Kind), body, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save codex %s: %w", c.ID, err)
	}
	return nil
}

// ListCodexes returns every codex ordered by id
func (db *DB) ListCodexes(ctx context.Context) ([]*types.Codex, error) {
	rows, err := db.pool.Query(ctx, `SELECT body FROM codexes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list codexes: %w", err)
	}
	defer rows.Close()

	var out []*types.Codex
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan codex: %w", err)
		}
		c, err := decodeCodex(body)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list codexes: %w", err)
	}
	return out, nil
}

// CodexInUse reports whether any unit references the codex
func (db *DB) CodexInUse(ctx context.Context, id string) (bool, error) {
	var inUse bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM units WHERE codex_id = $1)`,
		id,
	).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("failed to check codex usage: %w", err)
	}
	return inUse, nil
}

func decodeCodex(body []byte) (*types.Codex, error) {
	var c types.Codex
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("failed to decode codex: %w", err)
	}
	return &c, nil
}
