package normalize

import (
	"fmt"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// NormalizationFailure reports a value that does not match its rule's grammar.
// It is never fatal: the raw value is kept.
type NormalizationFailure struct {
	Kind    types.RuleKind
	Raw     string
	Message string
	Cause   error
}

func (e *NormalizationFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("normalize %s %q: %s: %v", e.Kind, e.Raw, e.Message, e.Cause)
	}
	return fmt.Sprintf("normalize %s %q: %s", e.Kind, e.Raw, e.Message)
}

func (e *NormalizationFailure) Unwrap() error {
	return e.Cause
}

func failure(kind types.RuleKind, raw, msg string) error {
	return &NormalizationFailure{Kind: kind, Raw: raw, Message: msg}
}
