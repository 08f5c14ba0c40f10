package observability

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/codex-pipeline/internal/types"
)

func TestPrintUnit(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	rec := types.NewStructuredRecord(map[string]any{
		"title":            "Senior Engineer",
		"company":          "Acme Corp",
		"technical_skills": []any{"Go", "Kubernetes"},
		"salary":           map[string]any{"min": 120000.0, "max": 150000.0},
		"location":         "",
	})
	rec.Evidence = []types.Evidence{{Quote: "Senior Engineer", FieldPath: "title"}}
	rec.AddFlag(types.Flag{Path: "location", Severity: types.SeverityWarn, Message: "location is missing"})

	p.PrintUnit(&types.ProcessingUnit{
		ID: "u1", CodexID: "job-card-v1", SourceKind: types.SourceText,
		SourceText: "Senior Engineer at Acme", Status: types.UnitCompleted, Record: rec,
	})
	output := buf.String()

	assert.Contains(t, output, "EXTRACTED RECORD")
	assert.Contains(t, output, "job-card-v1")
	assert.Contains(t, output, "technical_skills: Go, Kubernetes")
	assert.Contains(t, output, "salary: {2 keys}")
	assert.Contains(t, output, "location: (empty)")
	assert.Contains(t, output, "Evidence: 1 quotes")
	assert.Contains(t, output, "[warn] location: location is missing")
}

func TestPrintUnit_Failed(t *testing.T) {
	var buf bytes.Buffer
	msg := "extraction failed; please retry later"

	NewPrinter(&buf).PrintUnit(&types.ProcessingUnit{ID: "u2", Status: types.UnitError, ProcessingError: &msg})

	assert.Contains(t, buf.String(), msg)
	assert.NotContains(t, buf.String(), "Fields:")
}

func TestPrintBatch(t *testing.T) {
	var buf bytes.Buffer

	NewPrinter(&buf).PrintBatch(
		&types.BatchJob{ID: "b1", Status: types.BatchCompleted, TotalUnits: 3, CompletedUnits: 3, Concurrency: 2},
		[]*types.ProcessingUnit{{Status: types.UnitCompleted}, {Status: types.UnitCompleted}, {Status: types.UnitError}},
	)
	output := buf.String()

	assert.Contains(t, output, "Progress: 3/3 (concurrency 2)")
	assert.Contains(t, output, "completed: 2")
	assert.Contains(t, output, "error: 1")
}

func TestPrintTailorResult(t *testing.T) {
	var buf bytes.Buffer
	letter := "Dear team"

	NewPrinter(&buf).PrintTailorResult(&types.TailorResult{
		OK: true,
		Bundle: &types.TailoredBundle{
			CoverageScore: 0.9,
			Coverage:      []types.CoverageMatrixEntry{{JDItem: "React"}},
			Diff:          types.ResumeDiff{Rephrased: []types.RephrasedBullet{{From: "a", To: "b"}}},
			Warnings:      []string{"number \"45\" does not appear in the source résumé"},
			ATSReport: types.ATSReport{
				KeywordCoverage: 0.5,
				MissingKeywords: []string{"Kubernetes"},
				FormatWarnings:  []string{"no email address"},
			},
			CoverLetter: &letter,
		},
	})
	output := buf.String()

	assert.Contains(t, output, "Coverage score: 90% (1 requirements)")
	assert.Contains(t, output, "ATS keywords:   50%")
	assert.Contains(t, output, "missing: Kubernetes")
	assert.Contains(t, output, "1 rephrased, 0 added")
	assert.Contains(t, output, "no email address")
	assert.Contains(t, output, "Cover letter: included")
}

func TestPrintTailorResult_Rejected(t *testing.T) {
	var buf bytes.Buffer

	NewPrinter(&buf).PrintTailorResult(&types.TailorResult{
		Errors: []string{`immutable fact changed at experience.0.employer: source "Acme", tailored "Globex"`},
	})

	assert.Contains(t, buf.String(), "Rejected:")
	assert.Contains(t, buf.String(), "experience.0.employer")
}

func TestPrint_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintUnit(nil)
	p.PrintBatch(nil, nil)
	p.PrintTailorResult(nil)

	assert.Empty(t, buf.String())
}

func TestPrintBox_LineWidth(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", "short\n"+strings.Repeat("é", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
	assert.Contains(t, buf.String(), "...")
}
