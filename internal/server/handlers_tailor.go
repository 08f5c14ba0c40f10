package server

import (
	"net/http"

	"github.com/jonathan/codex-pipeline/internal/tailoring"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// TailorRequest is the body of POST /tailor. The résumé and the job are given
// either as structured records or as ids of completed units.
type TailorRequest struct {
	Resume       *types.StructuredRecord `json:"resume,omitempty" validate:"required_without=ResumeUnitID"`
	Job          *types.StructuredRecord `json:"job,omitempty" validate:"required_without=JobUnitID"`
	ResumeUnitID string                  `json:"resume_unit_id,omitempty" validate:"excluded_with=Resume"`
	JobUnitID    string                  `json:"job_unit_id,omitempty" validate:"excluded_with=Job"`
	Options      tailoring.Options       `json:"options"`
}

// handleTailor runs tailoring synchronously. A rejected run is still a 200:
// the result carries ok=false and the reasons.
func (s *Server) handleTailor(w http.ResponseWriter, r *http.Request) {
	var req TailorRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if t := req.Options.CoverageThreshold; t < 0 || t > 1 {
		s.fail(w, r, &ErrValidation{Field: "options.coverage_threshold", Message: "must be between 0 and 1"})
		return
	}

	if req.Resume != nil && req.Job != nil {
		s.jsonResponse(w, http.StatusOK, s.svc.Tailor(r.Context(), req.Resume, req.Job, req.Options))
		return
	}
	if req.ResumeUnitID == "" || req.JobUnitID == "" {
		s.fail(w, r, &ErrValidation{Field: "resume", Message: "give both records or both unit ids"})
		return
	}

	result, err := s.svc.TailorUnits(r.Context(), req.ResumeUnitID, req.JobUnitID, req.Options)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
