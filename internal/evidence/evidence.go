// Package evidence verifies that quotes cited by the model actually occur in
// the source document.
package evidence

import (
	"fmt"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/fieldpath"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// NoEvidenceMessage is attached to critical fields left without a citation
const NoEvidenceMessage = "no source evidence found"

// EvidenceMismatch is an evidence entry whose quote is not in the source
type EvidenceMismatch struct {
	Evidence types.Evidence
	Reason   string
}

func (e *EvidenceMismatch) Error() string {
	return fmt.Sprintf("evidence for %s dropped: %s", e.Evidence.FieldPath, e.Reason)
}

// Report summarizes one validation run
type Report struct {
	Kept    int
	Dropped []EvidenceMismatch
	Flagged []string
}

// Contains reports whether quote occurs in source, ignoring case.
// An empty quote never matches.
func Contains(source, quote string) bool {
	if strings.TrimSpace(quote) == "" {
		return false
	}
	return strings.Contains(strings.ToLower(source), strings.ToLower(quote))
}

// Validate drops evidence whose quote is not a substring of sourceText, then
// flags every critical field that has a value but no surviving evidence.
// The record is modified in place.
func Validate(record *types.StructuredRecord, sourceText string, criticalFields []string) Report {
	var report Report
	if record == nil {
		return report
	}

	kept := make([]types.Evidence, 0, len(record.Evidence))
	for _, ev := range record.Evidence {
		switch {
		case strings.TrimSpace(ev.Quote) == "":
			report.Dropped = append(report.Dropped, EvidenceMismatch{Evidence: ev, Reason: "empty quote"})
		case !Contains(sourceText, ev.Quote):
			report.Dropped = append(report.Dropped, EvidenceMismatch{Evidence: ev, Reason: "quote not found in source"})
		default:
			kept = append(kept, ev)
		}
	}
	record.Evidence = kept
	report.Kept = len(kept)

	for _, path := range criticalFields {
		value, ok := fieldpath.Get(record.Fields, path)
		if !ok || fieldpath.IsEmpty(value) {
			continue
		}
		if hasEvidence(kept, path) {
			continue
		}
		if record.AddFlag(types.Flag{Path: path, Severity: types.SeverityWarn, Message: NoEvidenceMessage}) {
			report.Flagged = append(report.Flagged, path)
		}
	}
	return report
}

func hasEvidence(evidence []types.Evidence, path string) bool {
	for _, ev := range evidence {
		if fieldpath.Covers(ev.FieldPath, path) {
			return true
		}
	}
	return false
}

// FilterCoverage keeps coverage entries whose résumé evidence occurs in
// resumeText. Entries without any quoted evidence are kept as unmatched
// requirements.
func FilterCoverage(entries []types.CoverageMatrixEntry, resumeText string) (kept []types.CoverageMatrixEntry, dropped int) {
	kept = make([]types.CoverageMatrixEntry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ResumeEvidence) != "" && !Contains(resumeText, e.ResumeEvidence) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}
