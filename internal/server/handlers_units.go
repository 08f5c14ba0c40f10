package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// CreateUnitRequest is the body of POST /units. Exactly one of Text and URL is set.
type CreateUnitRequest struct {
	Text    string `json:"text,omitempty" validate:"required_without=URL,excluded_with=URL"`
	URL     string `json:"url,omitempty" validate:"omitempty,http_url"`
	CodexID string `json:"codex_id" validate:"required,max=128"`
}

// UnitAccepted is returned when a unit is queued
type UnitAccepted struct {
	UnitID string `json:"unit_id"`
	Status string `json:"status"`
}

// handleCreateUnit queues extraction of pasted text or a job posting URL
func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.URL == "" {
		s.fail(w, r, &ErrValidation{Field: "text", Message: "is required"})
		return
	}

	var (
		id  string
		err error
	)
	if req.URL != "" {
		id, err = s.svc.SubmitURL(r.Context(), req.URL, req.CodexID)
	} else {
		id, err = s.svc.SubmitUnit(r.Context(), req.Text, req.CodexID)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, UnitAccepted{UnitID: id, Status: "pending"})
}

// handleUploadUnit queues extraction of an uploaded document. The document is
// either the "file" part of a multipart form or the raw request body; the codex
// comes from the codex_id form field or query parameter.
func (s *Server) handleUploadUnit(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	codexID := r.FormValue("codex_id")
	if codexID == "" {
		s.fail(w, r, &ErrValidation{Field: "codex_id", Message: "is required"})
		return
	}

	id, err := s.svc.SubmitDocument(r.Context(), data, mimeType, codexID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, UnitAccepted{UnitID: id, Status: "pending"})
}

// readUpload returns the document bytes and the declared MIME type, which may be empty
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return nil, "", fmt.Errorf("failed to parse upload: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", &ErrValidation{Field: "file", Message: "is required"}
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read upload: %w", err)
		}
		if len(data) == 0 {
			return nil, "", &ErrValidation{Field: "file", Message: "is empty"}
		}
		declared := header.Header.Get("Content-Type")
		if declared == "application/octet-stream" {
			declared = ""
		}
		return data, declared, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", &ErrValidation{Field: "body", Message: "is empty"}
	}
	if mediaType == "application/octet-stream" {
		mediaType = ""
	}
	return data, mediaType, nil
}

// handleGetUnit returns a unit without operator-only detail
func (s *Server) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := s.svc.GetUnit(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, unit)
}
