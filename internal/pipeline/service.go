// Package pipeline is the entry point for callers: it creates units and
// batches, schedules them on a worker pool and exposes their state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/batch"
	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/extraction"
	"github.com/jonathan/codex-pipeline/internal/fetch"
	"github.com/jonathan/codex-pipeline/internal/ingestion"
	"github.com/jonathan/codex-pipeline/internal/llm"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/store"
	"github.com/jonathan/codex-pipeline/internal/tailoring"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// MsgBusy is recorded on a unit that could not be scheduled
const MsgBusy = "service is busy; please retry later"

var (
	// ErrUnitNotReady is returned when tailoring refers to a unit without a record
	ErrUnitNotReady = errors.New("unit has no structured record")
	// ErrNoFetcher is returned by URL operations when no fetcher is configured
	ErrNoFetcher = errors.New("URL fetching is not configured")
)

// Options sizes the worker pool and batch chunks
type Options struct {
	Workers          int
	QueueSize        int
	BatchConcurrency int
}

// Deps are the collaborators of a Service. Fetcher, Metrics and Logger may be nil.
type Deps struct {
	Store   store.Store
	Codexes *codex.Registry
	Gateway llm.Gateway
	Readers *ingestion.Readers
	Fetcher fetch.Fetcher
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Service implements unit, batch and tailoring operations
type Service struct {
	store        store.Store
	codexes      *codex.Registry
	readers      *ingestion.Readers
	fetcher      fetch.Fetcher
	orchestrator *extraction.Orchestrator
	runner       *batch.Runner
	tailorer     *tailoring.Tailorer
	dispatcher   *Dispatcher
	progress     *Broker
	concurrency  int
	logger       *zap.Logger
	newID        func() string
}

// New wires a service and starts its worker pool. Call Close to drain it.
func New(deps Deps, opts Options) *Service {
	log := logger.OrNop(deps.Logger)
	readers := deps.Readers
	if readers == nil {
		readers = ingestion.NewReaders(nil, log)
	}
	concurrency := opts.BatchConcurrency
	if concurrency <= 0 {
		concurrency = types.DefaultBatchConcurrency
	}
	orch := extraction.NewOrchestrator(deps.Codexes, deps.Gateway, deps.Store, deps.Metrics, log)
	return &Service{
		store:        deps.Store,
		codexes:      deps.Codexes,
		readers:      readers,
		fetcher:      deps.Fetcher,
		orchestrator: orch,
		runner:       batch.NewRunner(orch, deps.Store, deps.Metrics, log),
		tailorer:     tailoring.NewTailorer(deps.Codexes, deps.Gateway, deps.Metrics, log),
		dispatcher:   NewDispatcher(opts.Workers, opts.QueueSize, log),
		progress:     NewBroker(),
		concurrency:  concurrency,
		logger:       log,
		newID:        uuid.NewString,
	}
}

// Close stops accepting work and waits for queued work to finish
func (s *Service) Close() {
	s.dispatcher.Stop()
}

// Codexes returns the codex registry
func (s *Service) Codexes() *codex.Registry {
	return s.codexes
}

// SubmitUnit creates a unit from plain text and schedules its extraction
func (s *Service) SubmitUnit(ctx context.Context, sourceText, codexID string) (string, error) {
	unit := types.NewProcessingUnit(s.newID(), sourceText, types.SourceText, codexID, "")
	if err := s.store.PutUnit(ctx, unit); err != nil {
		return "", fmt.Errorf("failed to create unit: %w", err)
	}
	if err := s.schedule(ctx, unit, func(ctx context.Context) {
		s.process(ctx, unit)
	}); err != nil {
		return "", err
	}
	return unit.ID, nil
}

// SubmitDocument creates a unit from an uploaded document. Unsupported
// formats are rejected before a unit is created.
func (s *Service) SubmitDocument(ctx context.Context, data []byte, mimeType, codexID string) (string, error) {
	detected := ingestion.DetectMIME(data, mimeType)
	if !s.readers.Supports(detected) {
		return "", &ingestion.UnsupportedFormatError{MimeType: detected}
	}
	unit := types.NewProcessingUnit(s.newID(), "", types.SourceText, codexID, "")
	if err := s.store.PutUnit(ctx, unit); err != nil {
		return "", fmt.Errorf("failed to create unit: %w", err)
	}
	if err := s.schedule(ctx, unit, func(ctx context.Context) {
		if _, err := s.orchestrator.Acquire(ctx, unit, s.readers, data, detected); err != nil {
			return
		}
		s.process(ctx, unit)
	}); err != nil {
		return "", err
	}
	return unit.ID, nil
}

// SubmitURL creates a unit whose text is fetched from a job posting URL
func (s *Service) SubmitURL(ctx context.Context, url, codexID string) (string, error) {
	if s.fetcher == nil {
		return "", ErrNoFetcher
	}
	unit := types.NewProcessingUnit(s.newID(), "", types.SourceHTML, codexID, "")
	if err := s.store.PutUnit(ctx, unit); err != nil {
		return "", fmt.Errorf("failed to create unit: %w", err)
	}
	if err := s.schedule(ctx, unit, func(ctx context.Context) {
		if _, err := s.acquireURL(ctx, unit, url); err != nil {
			return
		}
		s.process(ctx, unit)
	}); err != nil {
		return "", err
	}
	return unit.ID, nil
}

// GetUnit returns the user-facing view of a unit
func (s *Service) GetUnit(ctx context.Context, id string) (*types.ProcessingUnit, error) {
	unit, err := s.store.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	return unit.Public(), nil
}

// SubmitBatch creates one unit per text and schedules the batch. A
// non-positive concurrency selects the configured default.
func (s *Service) SubmitBatch(ctx context.Context, texts []string, codexID string, concurrency int) (string, error) {
	job, units, err := s.newBatch(ctx, texts, codexID, concurrency)
	if err != nil {
		return "", err
	}
	err = s.dispatcher.Submit(func(ctx context.Context) {
		if err := s.runner.Run(ctx, job, units, job.Concurrency, s.progress.Publish); err != nil {
			s.logger.Error("batch run failed", zap.String(logger.FieldBatchID, job.ID), zap.Error(err))
		}
	})
	if err != nil {
		job.Status = types.BatchError
		job.UpdatedAt = time.Now().UTC()
		if putErr := s.store.PutBatch(context.WithoutCancel(ctx), job); putErr != nil {
			s.logger.Error("failed to persist rejected batch", zap.String(logger.FieldBatchID, job.ID), zap.Error(putErr))
		}
		return "", fmt.Errorf("failed to schedule batch: %w", err)
	}
	return job.ID, nil
}

// GetBatch returns a batch job
func (s *Service) GetBatch(ctx context.Context, id string) (*types.BatchJob, error) {
	return s.store.GetBatch(ctx, id)
}

// ListBatchUnits returns the user-facing view of every unit in a batch
func (s *Service) ListBatchUnits(ctx context.Context, batchID string) ([]*types.ProcessingUnit, error) {
	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	units, err := s.store.ListUnitsByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	out := make([]*types.ProcessingUnit, 0, len(units))
	for _, u := range units {
		out = append(out, u.Public())
	}
	return out, nil
}

// Subscribe streams progress events of a running batch
func (s *Service) Subscribe(batchID string) (<-chan batch.ProgressEvent, func()) {
	return s.progress.Subscribe(batchID)
}

// Tailor rewrites a résumé record for a job record
func (s *Service) Tailor(ctx context.Context, resume, job *types.StructuredRecord, opts tailoring.Options) *types.TailorResult {
	return s.tailorer.Tailor(ctx, resume, job, opts)
}

// TailorUnits tailors the record of a completed résumé unit to the record of
// a completed job unit. The résumé unit's source text backs the evidence
// checks unless opts names one.
func (s *Service) TailorUnits(ctx context.Context, resumeUnitID, jobUnitID string, opts tailoring.Options) (*types.TailorResult, error) {
	resume, err := s.completedUnit(ctx, resumeUnitID)
	if err != nil {
		return nil, err
	}
	job, err := s.completedUnit(ctx, jobUnitID)
	if err != nil {
		return nil, err
	}
	if opts.ResumeText == "" {
		opts.ResumeText = resume.SourceText
	}
	return s.tailorer.Tailor(ctx, resume.Record, job.Record, opts), nil
}

func (s *Service) completedUnit(ctx context.Context, id string) (*types.ProcessingUnit, error) {
	unit, err := s.store.GetUnit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", id, err)
	}
	if unit.Status != types.UnitCompleted || unit.Record == nil {
		return nil, fmt.Errorf("unit %s (%s): %w", id, unit.Status, ErrUnitNotReady)
	}
	return unit, nil
}

// schedule enqueues task for unit. When the queue rejects it the unit is
// moved to error so it does not stay pending forever.
func (s *Service) schedule(ctx context.Context, unit *types.ProcessingUnit, task Task) error {
	err := s.dispatcher.Submit(task)
	if err == nil {
		return nil
	}
	if failErr := unit.Fail(types.UnitError, MsgBusy, err); failErr == nil {
		if putErr := s.store.PutUnit(context.WithoutCancel(ctx), unit); putErr != nil {
			s.logger.Error("failed to persist rejected unit", zap.String(logger.FieldUnitID, unit.ID), zap.Error(putErr))
		}
	}
	return fmt.Errorf("failed to schedule unit: %w", err)
}

func (s *Service) process(ctx context.Context, unit *types.ProcessingUnit) {
	if err := s.orchestrator.Process(ctx, unit); err != nil {
		logger.Unit(s.logger, unit.ID, unit.CodexID).Error("unit processing aborted", zap.Error(err))
	}
}

func (s *Service) acquireURL(ctx context.Context, unit *types.ProcessingUnit, url string) (*ingestion.Document, error) {
	fromURL := ingestion.ReaderFunc(func(ctx context.Context, _ []byte, _ string) (*ingestion.Document, error) {
		doc, _, err := ingestion.IngestFromURL(ctx, s.fetcher, url)
		return doc, err
	})
	return s.orchestrator.Acquire(ctx, unit, fromURL, nil, "")
}

func (s *Service) newBatch(ctx context.Context, texts []string, codexID string, concurrency int) (*types.BatchJob, []*types.ProcessingUnit, error) {
	if concurrency <= 0 {
		concurrency = s.concurrency
	}
	now := time.Now().UTC()
	job := &types.BatchJob{
		ID:          s.newID(),
		Status:      types.BatchPending,
		TotalUnits:  len(texts),
		CodexID:     codexID,
		Concurrency: concurrency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutBatch(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to create batch: %w", err)
	}
	units := make([]*types.ProcessingUnit, 0, len(texts))
	for _, text := range texts {
		unit := types.NewProcessingUnit(s.newID(), text, types.SourceText, codexID, job.ID)
		if err := s.store.PutUnit(ctx, unit); err != nil {
			return nil, nil, fmt.Errorf("failed to create batch unit: %w", err)
		}
		units = append(units, unit)
	}
	return job, units, nil
}
