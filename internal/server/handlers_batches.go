package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/batch"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// CreateBatchRequest is the body of POST /batches
type CreateBatchRequest struct {
	Texts       []string `json:"texts" validate:"required,min=1,max=500,dive,required"`
	CodexID     string   `json:"codex_id" validate:"required,max=128"`
	Concurrency int      `json:"concurrency,omitempty" validate:"omitempty,min=1,max=32"`
}

// BatchAccepted is returned when a batch is queued
type BatchAccepted struct {
	BatchID    string `json:"batch_id"`
	Status     string `json:"status"`
	TotalUnits int    `json:"total_units"`
}

// ListBatchUnitsResponse represents the response for listing a batch's units
type ListBatchUnitsResponse struct {
	Units []*types.ProcessingUnit `json:"units"`
	Count int                     `json:"count"`
}

// handleCreateBatch queues one unit per text
func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	id, err := s.svc.SubmitBatch(r.Context(), req.Texts, req.CodexID, req.Concurrency)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, BatchAccepted{
		BatchID:    id,
		Status:     string(types.BatchPending),
		TotalUnits: len(req.Texts),
	})
}

// handleGetBatch returns batch progress
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.GetBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleListBatchUnits returns every unit of a batch
func (s *Server) handleListBatchUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.svc.ListBatchUnits(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ListBatchUnitsResponse{Units: units, Count: len(units)})
}

// handleBatchStream streams progress events until the batch finishes. The
// first event is the current state; the last is a "complete" event carrying
// the final state re-read from the store.
func (s *Server) handleBatchStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	// subscribe before reading so a transition in between is not lost
	events, cancel := s.svc.Subscribe(id)
	defer cancel()

	job, err := s.svc.GetBatch(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// a stream outlives the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job.Done() {
		sse.WriteComplete(progressOf(job))
		return
	}
	if err := sse.WriteEvent(eventProgress, progressOf(job)); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				s.finishStream(ctx, sse, id)
				return
			}
			if err := sse.WriteEvent(eventProgress, ev); err != nil {
				return
			}
		}
	}
}

// finishStream sends the stored state once the broker closed the subscription.
// Intermediate events may have been dropped for a slow client; the stored
// batch is authoritative.
func (s *Server) finishStream(ctx context.Context, sse *SSEWriter, id string) {
	final, err := s.svc.GetBatch(ctx, id)
	if err != nil {
		s.logger.Warn("failed to read finished batch", zap.String(logger.FieldBatchID, id), zap.Error(err))
		sse.WriteError("batch state unavailable")
		return
	}
	sse.WriteComplete(progressOf(final))
}

func progressOf(job *types.BatchJob) batch.ProgressEvent {
	return batch.ProgressEvent{
		BatchID:        job.ID,
		Status:         job.Status,
		CompletedUnits: job.CompletedUnits,
		TotalUnits:     job.TotalUnits,
	}
}
