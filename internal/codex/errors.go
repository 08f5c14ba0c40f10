package codex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/store"
)

// ErrNotFound is returned when no codex has the requested id
var ErrNotFound = store.ErrNotFound

// ErrPublished is returned when a referenced codex would change content
var ErrPublished = errors.New("codex is published and cannot be changed")

// ConfigurationError reports an unusable codex: invalid on submission, or
// missing when a unit references it.
type ConfigurationError struct {
	CodexID  string
	Problems []string
	Cause    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("codex %q is invalid", e.CodexID)
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}
