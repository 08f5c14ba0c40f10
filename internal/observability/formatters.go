// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad fits s to width runes, truncating with "..."
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-len(r))
}

// PrintUnit outputs the status and extracted record of a unit.
func (p *Printer) PrintUnit(unit *types.ProcessingUnit) {
	if unit == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Unit:     %s\n", unit.ID))
	sb.WriteString(fmt.Sprintf("Codex:    %s\n", unit.CodexID))
	sb.WriteString(fmt.Sprintf("Source:   %s (%d chars)\n", unit.SourceKind, len([]rune(unit.SourceText))))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", unit.Status))
	if unit.ProcessingError != nil {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", *unit.ProcessingError))
	}

	if rec := unit.Record; rec != nil {
		sb.WriteString("\nFields:\n")
		names := make([]string, 0, len(rec.Fields))
		for name := range rec.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for i, name := range names {
			if i == maxItemsToShow*2 {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(names)-i))
				break
			}
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", name, summarize(rec.Fields[name])))
		}

		sb.WriteString(fmt.Sprintf("\nEvidence: %d quotes\n", len(rec.Evidence)))
		if len(rec.MissingFields) > 0 {
			sb.WriteString(fmt.Sprintf("Flags:    %d\n", len(rec.MissingFields)))
			count := min(len(rec.MissingFields), maxItemsToShow)
			for _, f := range rec.MissingFields[:count] {
				sb.WriteString(fmt.Sprintf("  [%s] %s: %s\n", f.Severity, f.Path, f.Message))
			}
			if len(rec.MissingFields) > maxItemsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.MissingFields)-maxItemsToShow))
			}
		}
	}

	p.printBox("EXTRACTED RECORD", strings.TrimSuffix(sb.String(), "\n"))
}

// summarize renders a field value on one line
func summarize(v any) string {
	switch val := v.(type) {
	case nil:
		return "(empty)"
	case string:
		if val == "" {
			return "(empty)"
		}
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == len(val) && len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
		return fmt.Sprintf("%d items", len(val))
	case map[string]any:
		return fmt.Sprintf("{%d keys}", len(val))
	default:
		return fmt.Sprint(val)
	}
}

// PrintBatch outputs the progress of a batch.
func (p *Printer) PrintBatch(job *types.BatchJob, units []*types.ProcessingUnit) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Batch:    %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Progress: %d/%d (concurrency %d)\n", job.CompletedUnits, job.TotalUnits, job.Concurrency))

	if len(units) > 0 {
		byStatus := map[types.UnitStatus]int{}
		for _, u := range units {
			byStatus[u.Status]++
		}
		statuses := make([]string, 0, len(byStatus))
		for s := range byStatus {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		sb.WriteString("\nUnits:\n")
		for _, s := range statuses {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", s, byStatus[types.UnitStatus(s)]))
		}
	}

	p.printBox("BATCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTailorResult outputs coverage, ATS findings and warnings of a tailoring run.
func (p *Printer) PrintTailorResult(result *types.TailorResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	if !result.OK || result.Bundle == nil {
		sb.WriteString("Rejected:\n")
		for _, e := range result.Errors {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", e))
		}
		p.printBox("TAILORING", strings.TrimSuffix(sb.String(), "\n"))
		return
	}

	b := result.Bundle
	sb.WriteString(fmt.Sprintf("Coverage score: %.0f%% (%d requirements)\n", b.CoverageScore*100, len(b.Coverage)))
	sb.WriteString(fmt.Sprintf("ATS keywords:   %.0f%%\n", b.ATSReport.KeywordCoverage*100))
	if len(b.ATSReport.MissingKeywords) > 0 {
		sb.WriteString(fmt.Sprintf("  missing: %s\n", strings.Join(b.ATSReport.MissingKeywords, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Changes:        %d rephrased, %d added, %d removed, %d reordered\n",
		len(b.Diff.Rephrased), len(b.Diff.Added), len(b.Diff.Removed), len(b.Diff.Reordered)))

	warnings := append(append([]string{}, b.Warnings...), b.ATSReport.FormatWarnings...)
	if len(warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		count := min(len(warnings), maxItemsToShow)
		for _, w := range warnings[:count] {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", w))
		}
		if len(warnings) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(warnings)-maxItemsToShow))
		}
	}
	if b.CoverLetter != nil {
		sb.WriteString("\nCover letter: included\n")
	}

	p.printBox("TAILORING", strings.TrimSuffix(sb.String(), "\n"))
}
