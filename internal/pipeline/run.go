package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/codex-pipeline/internal/batch"
	"github.com/jonathan/codex-pipeline/internal/ingestion"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// Synchronous variants used by the CLI. They run on the caller's goroutine
// and return the full unit, operator detail included.

// Extract runs extraction on plain text and returns the finished unit
func (s *Service) Extract(ctx context.Context, sourceText, codexID string) (*types.ProcessingUnit, error) {
	unit := types.NewProcessingUnit(s.newID(), sourceText, types.SourceText, codexID, "")
	if err := s.store.PutUnit(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}
	if err := s.orchestrator.Process(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// ExtractDocument reads a document and runs extraction on its text. A read
// failure leaves the unit failed and is returned alongside it.
func (s *Service) ExtractDocument(ctx context.Context, data []byte, mimeType, codexID string) (*types.ProcessingUnit, *ingestion.Document, error) {
	unit := types.NewProcessingUnit(s.newID(), "", types.SourceText, codexID, "")
	if err := s.store.PutUnit(ctx, unit); err != nil {
		return nil, nil, fmt.Errorf("failed to create unit: %w", err)
	}
	doc, err := s.orchestrator.Acquire(ctx, unit, s.readers, data, mimeType)
	if err != nil {
		return unit, nil, err
	}
	if err := s.orchestrator.Process(ctx, unit); err != nil {
		return nil, doc, err
	}
	return unit, doc, nil
}

// ExtractURL fetches a page and runs extraction on its main text
func (s *Service) ExtractURL(ctx context.Context, url, codexID string) (*types.ProcessingUnit, *ingestion.Document, error) {
	if s.fetcher == nil {
		return nil, nil, ErrNoFetcher
	}
	unit := types.NewProcessingUnit(s.newID(), "", types.SourceHTML, codexID, "")
	if err := s.store.PutUnit(ctx, unit); err != nil {
		return nil, nil, fmt.Errorf("failed to create unit: %w", err)
	}
	doc, err := s.acquireURL(ctx, unit, url)
	if err != nil {
		return unit, nil, err
	}
	if err := s.orchestrator.Process(ctx, unit); err != nil {
		return nil, doc, err
	}
	return unit, doc, nil
}

// RunBatch runs a batch to completion. onProgress may be nil.
func (s *Service) RunBatch(ctx context.Context, texts []string, codexID string, concurrency int, onProgress batch.ProgressFunc) (*types.BatchJob, error) {
	job, units, err := s.newBatch(ctx, texts, codexID, concurrency)
	if err != nil {
		return nil, err
	}
	publish := func(ev batch.ProgressEvent) {
		s.progress.Publish(ev)
		if onProgress != nil {
			onProgress(ev)
		}
	}
	if err := s.runner.Run(ctx, job, units, job.Concurrency, publish); err != nil {
		return job, err
	}
	return job, nil
}
