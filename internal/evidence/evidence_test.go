package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/codex-pipeline/internal/types"
)

const jobSource = "Senior Engineer. 5+ years of React experience required. Familiarity with Go and PostgreSQL is a plus."

func TestContains(t *testing.T) {
	assert.True(t, Contains(jobSource, "5+ years of React experience"))
	assert.True(t, Contains(jobSource, "FAMILIARITY WITH GO"))
	assert.False(t, Contains(jobSource, "10 years of Python"))
	assert.False(t, Contains(jobSource, ""))
	assert.False(t, Contains(jobSource, "   "))
}

func TestValidate_KeepsVerbatimQuote(t *testing.T) {
	record := types.NewStructuredRecord(map[string]any{
		"experience_required": []any{"5+ years of React experience"},
	})
	record.Evidence = []types.Evidence{
		{Quote: "5+ years of React experience required", FieldPath: "experience_required"},
	}

	report := Validate(record, jobSource, []string{"experience_required"})

	assert.Equal(t, 1, report.Kept)
	assert.Empty(t, report.Dropped)
	assert.Empty(t, report.Flagged)
	assert.Empty(t, record.MissingFields)
}

func TestValidate_DropsHallucinatedQuote(t *testing.T) {
	record := types.NewStructuredRecord(map[string]any{
		"technical_skills": []any{"Python"},
	})
	record.Evidence = []types.Evidence{
		{Quote: "10 years of Python", FieldPath: "technical_skills"},
		{Quote: "", FieldPath: "technical_skills"},
	}

	report := Validate(record, jobSource, []string{"technical_skills"})

	assert.Empty(t, record.Evidence)
	require.Len(t, report.Dropped, 2)
	assert.Equal(t, "quote not found in source", report.Dropped[0].Reason)
	assert.Equal(t, "empty quote", report.Dropped[1].Reason)
	assert.Equal(t, []string{"technical_skills"}, report.Flagged)
	require.Len(t, record.MissingFields, 1)
	assert.Equal(t, types.Flag{Path: "technical_skills", Severity: types.SeverityWarn, Message: NoEvidenceMessage}, record.MissingFields[0])
}

func TestValidate_ChildPathCountsAsEvidence(t *testing.T) {
	record := types.NewStructuredRecord(map[string]any{
		"technical_skills":       []any{"Go"},
		"technical_skills_extra": []any{"PostgreSQL"},
	})
	record.Evidence = []types.Evidence{
		{Quote: "Familiarity with Go", FieldPath: "technical_skills.0"},
	}

	report := Validate(record, jobSource, []string{"technical_skills", "technical_skills_extra"})

	assert.Equal(t, []string{"technical_skills_extra"}, report.Flagged)
}

func TestValidate_SkipsEmptyAndExistingFlags(t *testing.T) {
	record := types.NewStructuredRecord(map[string]any{
		"title":    "   ",
		"location": "Berlin",
	})
	record.MissingFields = []types.Flag{{Path: "location", Severity: types.SeverityError, Message: "schema"}}

	report := Validate(record, jobSource, []string{"title", "location", "absent"})

	assert.Empty(t, report.Flagged)
	assert.Len(t, record.MissingFields, 1)
}

func TestValidate_EveryKeptQuoteIsInSource(t *testing.T) {
	record := types.NewStructuredRecord(nil)
	record.Evidence = []types.Evidence{
		{Quote: "Senior Engineer", FieldPath: "title"},
		{Quote: "senior engineer.", FieldPath: "title"},
		{Quote: "Remote first", FieldPath: "location"},
		{Quote: "go and postgresql", FieldPath: "technical_skills"},
	}

	Validate(record, jobSource, nil)

	require.Len(t, record.Evidence, 3)
	for _, ev := range record.Evidence {
		assert.True(t, Contains(jobSource, ev.Quote), ev.Quote)
	}
}

func TestFilterCoverage(t *testing.T) {
	resume := "Built React dashboards used by 2M users. Led migration to Go services."
	entries := []types.CoverageMatrixEntry{
		{JDItem: "React", ResumeEvidence: "Built React dashboards"},
		{JDItem: "Python", ResumeEvidence: "Wrote Python ETL"},
		{JDItem: "Kubernetes", ResumeEvidence: ""},
	}

	kept, dropped := FilterCoverage(entries, resume)

	assert.Equal(t, 1, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, "React", kept[0].JDItem)
	assert.Equal(t, "Kubernetes", kept[1].JDItem)
}

func TestEvidenceMismatch_Error(t *testing.T) {
	err := &EvidenceMismatch{Evidence: types.Evidence{FieldPath: "salary"}, Reason: "empty quote"}
	assert.Equal(t, "evidence for salary dropped: empty quote", err.Error())
}
