// Package types provides type definitions for structured data used throughout the codex pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"
)

// UnitStatus is the per-unit processing state
type UnitStatus string

// Unit states. Transitions only move forward; terminal states are never left.
const (
	UnitPending    UnitStatus = "pending"
	UnitProcessing UnitStatus = "processing"
	UnitExtracting UnitStatus = "extracting"
	UnitValidating UnitStatus = "validating"
	UnitCompleted  UnitStatus = "completed"
	UnitError      UnitStatus = "error"
	UnitFailed     UnitStatus = "failed"
)

// Terminal reports whether no further transition is possible from s
func (s UnitStatus) Terminal() bool {
	return s == UnitCompleted || s == UnitError || s == UnitFailed
}

// unitTransitions lists the legal forward edges. UnitError is reachable from
// every non-terminal state and is handled separately.
var unitTransitions = map[UnitStatus][]UnitStatus{
	UnitPending:    {UnitProcessing, UnitFailed},
	UnitProcessing: {UnitExtracting, UnitFailed},
	UnitExtracting: {UnitValidating},
	UnitValidating: {UnitCompleted},
}

// CanTransition reports whether from -> to is a legal edge
func CanTransition(from, to UnitStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == UnitError {
		return true
	}
	for _, next := range unitTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourceKind identifies how the unit's source text was acquired
type SourceKind string

// Source kinds
const (
	SourceText   SourceKind = "text"
	SourceHTML   SourceKind = "html"
	SourcePDF    SourceKind = "pdf"
	SourceDOCX   SourceKind = "docx"
	SourceVision SourceKind = "vision"
)

// ProcessingUnit is one job posting or one résumé moving through extraction
type ProcessingUnit struct {
	ID              string            `json:"id"`
	Status          UnitStatus        `json:"status"`
	SourceText      string            `json:"source_text"`
	SourceKind      SourceKind        `json:"source_kind"`
	CodexID         string            `json:"codex_id"`
	Record          *StructuredRecord `json:"structured_record"`
	ProcessingError *string           `json:"processing_error"`
	ErrorDetail     string            `json:"error_detail,omitempty"` // operator-only; stripped by the API
	BatchID         *string           `json:"batch_id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewProcessingUnit creates a pending unit. batchID may be empty.
func NewProcessingUnit(id, sourceText string, kind SourceKind, codexID, batchID string) *ProcessingUnit {
	now := time.Now().UTC()
	u := &ProcessingUnit{
		ID:         id,
		Status:     UnitPending,
		SourceText: sourceText,
		SourceKind: kind,
		CodexID:    codexID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if batchID != "" {
		b := batchID
		u.BatchID = &b
	}
	return u
}

// TransitionError reports an illegal state change
type TransitionError struct {
	UnitID string
	From   UnitStatus
	To     UnitStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("unit %s: illegal transition %s -> %s", e.UnitID, e.From, e.To)
}

// Transition moves the unit to the next state
func (u *ProcessingUnit) Transition(to UnitStatus) error {
	if !CanTransition(u.Status, to) {
		return &TransitionError{UnitID: u.ID, From: u.Status, To: to}
	}
	u.Status = to
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail moves the unit into a terminal failure state (UnitError or UnitFailed),
// recording a generic user-facing message and the verbatim cause.
// The record is cleared.
func (u *ProcessingUnit) Fail(to UnitStatus, message string, cause error) error {
	if err := u.Transition(to); err != nil {
		return err
	}
	msg := message
	u.ProcessingError = &msg
	if cause != nil {
		u.ErrorDetail = cause.Error()
	}
	u.Record = nil
	return nil
}

// Public returns a copy safe to show to end users (operator detail removed)
func (u *ProcessingUnit) Public() *ProcessingUnit {
	cp := *u
	cp.ErrorDetail = ""
	return &cp
}
