// Package server provides the HTTP API of the codex agent.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/ingestion"
	"github.com/jonathan/codex-pipeline/internal/pipeline"
	"github.com/jonathan/codex-pipeline/internal/store"
	"github.com/jonathan/codex-pipeline/internal/tailoring"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation  *ErrValidation
		unsupported *ingestion.UnsupportedFormatError
		configErr   *codex.ConfigurationError
		violation   *tailoring.ImmutableFactViolation
		tooLarge    *http.MaxBytesError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &configErr), errors.As(err, &violation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, codex.ErrPublished), errors.Is(err, pipeline.ErrUnitNotReady):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrNoFetcher):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text shown to clients. Internal failures are
// not described.
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusNotImplemented {
		return "internal server error"
	}
	return err.Error()
}
