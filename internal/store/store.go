// Package store defines persistence for codexes, processing units and batch
// jobs, with an in-memory backend and a Redis read-through cache.
// The PostgreSQL backend lives in internal/db.
package store

import (
	"context"
	"errors"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// CodexStore persists codexes
type CodexStore interface {
	GetCodex(ctx context.Context, id string) (*types.Codex, error)
	PutCodex(ctx context.Context, codex *types.Codex) error
	ListCodexes(ctx context.Context) ([]*types.Codex, error)
	// CodexInUse reports whether any unit references the codex
	CodexInUse(ctx context.Context, id string) (bool, error)
}

// UnitStore persists processing units
type UnitStore interface {
	GetUnit(ctx context.Context, id string) (*types.ProcessingUnit, error)
	PutUnit(ctx context.Context, unit *types.ProcessingUnit) error
	ListUnitsByBatch(ctx context.Context, batchID string) ([]*types.ProcessingUnit, error)
}

// BatchStore persists batch jobs
type BatchStore interface {
	GetBatch(ctx context.Context, id string) (*types.BatchJob, error)
	PutBatch(ctx context.Context, batch *types.BatchJob) error
}

// Store is the full persistence surface used by the pipeline
type Store interface {
	CodexStore
	UnitStore
	BatchStore
}
