// Package types provides type definitions for structured data used throughout the codex pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// BatchStatus is the lifecycle state of a batch job
type BatchStatus string

// Batch states
const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchError      BatchStatus = "error"
)

// DefaultBatchConcurrency is the number of units in flight per batch chunk
const DefaultBatchConcurrency = 3

// BatchJob groups units processed together with bounded concurrency.
// CompletedUnits counts attempted units, not successful ones.
type BatchJob struct {
	ID             string      `json:"id"`
	Status         BatchStatus `json:"status"`
	TotalUnits     int         `json:"total_units"`
	CompletedUnits int         `json:"completed_units"`
	CodexID        string      `json:"codex_id"`
	Concurrency    int         `json:"concurrency"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Done reports whether the batch reached a terminal state
func (b *BatchJob) Done() bool {
	return b.Status == BatchCompleted || b.Status == BatchError
}
