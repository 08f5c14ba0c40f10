// Package batch runs a set of processing units in fixed-size chunks and
// reports progress after each chunk settles.
package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/store"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// Processor drives one unit to a terminal state
type Processor interface {
	Process(ctx context.Context, unit *types.ProcessingUnit) error
}

// ProgressEvent is emitted each time the batch record is persisted
type ProgressEvent struct {
	BatchID        string            `json:"batch_id"`
	Status         types.BatchStatus `json:"status"`
	CompletedUnits int               `json:"completed_units"`
	TotalUnits     int               `json:"total_units"`
}

// ProgressFunc receives progress events. It is called from the Run goroutine.
type ProgressFunc func(ProgressEvent)

// Runner executes batches
type Runner struct {
	processor Processor
	batches   store.BatchStore
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewRunner creates a runner. m and log may be nil.
func NewRunner(p Processor, batches store.BatchStore, m *metrics.Metrics, log *zap.Logger) *Runner {
	return &Runner{processor: p, batches: batches, metrics: m, logger: logger.OrNop(log)}
}

// Run processes units in chunks of concurrency (DefaultBatchConcurrency when
// not positive). Units in a chunk run in parallel and a unit failure never
// stops its siblings. CompletedUnits counts attempted units and is written
// only after a whole chunk has settled. When ctx is cancelled the runner
// stops between chunks and marks the batch as error; units already started
// always finish.
func (r *Runner) Run(ctx context.Context, batch *types.BatchJob, units []*types.ProcessingUnit, concurrency int, onProgress ProgressFunc) error {
	if concurrency <= 0 {
		concurrency = types.DefaultBatchConcurrency
	}
	log := r.logger.With(zap.String(logger.FieldBatchID, batch.ID), zap.String(logger.FieldCodexID, batch.CodexID))
	// units outlive a cancelled caller
	unitCtx := context.WithoutCancel(ctx)
	total := len(units)

	batch.TotalUnits = total
	batch.Concurrency = concurrency
	batch.CompletedUnits = 0
	batch.Status = types.BatchProcessing
	if total == 0 {
		batch.Status = types.BatchCompleted
	}
	if err := r.save(unitCtx, batch, onProgress); err != nil {
		return err
	}
	log.Info("batch started", zap.Int("total_units", total), zap.Int("concurrency", concurrency))
	started := time.Now()

	processed := 0
	for start := 0; start < total; start += concurrency {
		if err := ctx.Err(); err != nil {
			batch.Status = types.BatchError
			if saveErr := r.save(unitCtx, batch, onProgress); saveErr != nil {
				return saveErr
			}
			r.metrics.BatchDone(batch.ID)
			log.Warn("batch stopped", zap.Int("completed_units", batch.CompletedUnits), zap.Error(err))
			return err
		}

		end := min(start+concurrency, total)
		var g errgroup.Group
		for _, unit := range units[start:end] {
			g.Go(func() error {
				if err := r.processor.Process(unitCtx, unit); err != nil {
					log.Error("unit processing failed", zap.String(logger.FieldUnitID, unit.ID), zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()

		processed += end - start
		batch.CompletedUnits = min(processed, total)
		if end == total {
			batch.Status = types.BatchCompleted
		}
		if err := r.save(unitCtx, batch, onProgress); err != nil {
			return err
		}
		r.metrics.BatchAdvanced(batch.ID, batch.CompletedUnits, total)
		log.Debug("chunk settled", zap.Int("completed_units", batch.CompletedUnits))
	}

	r.metrics.BatchDone(batch.ID)
	log.Info("batch completed", zap.Int("total_units", total), zap.Duration("duration", time.Since(started)))
	return nil
}

func (r *Runner) save(ctx context.Context, batch *types.BatchJob, onProgress ProgressFunc) error {
	batch.UpdatedAt = time.Now().UTC()
	if err := r.batches.PutBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to persist batch %s: %w", batch.ID, err)
	}
	if onProgress != nil {
		onProgress(ProgressEvent{
			BatchID:        batch.ID,
			Status:         batch.Status,
			CompletedUnits: batch.CompletedUnits,
			TotalUnits:     batch.TotalUnits,
		})
	}
	return nil
}
