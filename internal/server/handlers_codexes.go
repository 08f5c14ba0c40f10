package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/types"
)

const maxCodexBytes = 1 << 20

// ListCodexesResponse represents the response for listing codexes
type ListCodexesResponse struct {
	Codexes []*types.Codex `json:"codexes"`
	Count   int            `json:"count"`
}

// handleListCodexes lists every stored codex
func (s *Server) handleListCodexes(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Codexes().List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*types.Codex{}
	}
	s.jsonResponse(w, http.StatusOK, ListCodexesResponse{Codexes: list, Count: len(list)})
}

// handleGetCodex returns one codex
func (s *Server) handleGetCodex(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Codexes().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, c)
}

// handlePutCodex stores a whole codex under the id in the path. The body id,
// when present, must match.
func (s *Server) handlePutCodex(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCodexBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("failed to read codex: %w", err))
		return
	}

	c, err := codex.Decode(data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	switch c.ID {
	case "":
		c.ID = id
	case id:
	default:
		s.fail(w, r, &ErrValidation{Field: "id", Message: fmt.Sprintf("%q does not match the path", c.ID)})
		return
	}

	stored, err := s.svc.Codexes().Put(r.Context(), c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stored)
}
