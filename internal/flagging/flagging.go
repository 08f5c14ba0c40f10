// Package flagging marks record fields that are missing or extracted with
// low confidence so a reviewer can check them.
package flagging

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/codex-pipeline/internal/fieldpath"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// ConfidenceThreshold is the score below which a field is flagged
const ConfidenceThreshold = 0.8

// Result lists the paths flagged by one Apply call
type Result struct {
	Missing       []string
	LowConfidence []string
}

// Total is the number of flags raised
func (r Result) Total() int {
	return len(r.Missing) + len(r.LowConfidence)
}

// Apply evaluates the codex's missing-field rules in order, then raises a
// warning for every confidence entry below the threshold, including entries
// for categories the record ended up without. At most one flag exists per
// path; flags already on the record take precedence.
func Apply(record *types.StructuredRecord, codex *types.Codex) Result {
	var res Result
	if record == nil || codex == nil {
		return res
	}

	for _, rule := range codex.MissingFieldRules {
		value, ok := fieldpath.Get(record.Fields, rule.Path)
		if ok && !fieldpath.IsEmpty(value) {
			continue
		}
		if record.AddFlag(types.Flag{Path: rule.Path, Severity: rule.Severity, Message: rule.Message}) {
			res.Missing = append(res.Missing, rule.Path)
		}
	}

	paths := make([]string, 0, len(record.Confidence))
	for path := range record.Confidence {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		score := record.Confidence[path]
		if score >= ConfidenceThreshold {
			continue
		}
		if record.AddFlag(types.Flag{Path: path, Severity: types.SeverityWarn, Message: LowConfidenceMessage(score)}) {
			res.LowConfidence = append(res.LowConfidence, path)
		}
	}
	return res
}

// LowConfidenceMessage renders the reviewer message for a score in [0,1]
func LowConfidenceMessage(score float64) string {
	return fmt.Sprintf("low confidence (%d%%) — please verify", int(math.Round(score*100)))
}
