// Package types provides type definitions for structured data used throughout the codex pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Resume is the typed view of a résumé record used by tailoring
type Resume struct {
	Name       string            `json:"name,omitempty"`
	Email      string            `json:"email,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Skills     []string          `json:"skills,omitempty"`
	Experience []ExperienceEntry `json:"experience"`
	Education  []EducationEntry  `json:"education,omitempty"`
}

// ExperienceEntry is one position held. Employer, Title, StartDate and EndDate
// are immutable facts: tailoring must copy them unchanged.
type ExperienceEntry struct {
	Employer  string   `json:"employer"`
	Title     string   `json:"title"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Location  string   `json:"location,omitempty"`
	Bullets   []string `json:"bullets"`
}

// EducationEntry is one degree or program
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// CoverageMatrixEntry maps a job requirement to résumé evidence
type CoverageMatrixEntry struct {
	JDItem         string  `json:"jd_item"`
	ResumeEvidence string  `json:"resume_evidence"`
	ResumeRef      string  `json:"resume_ref"`
	Confidence     float64 `json:"confidence"`
	Notes          string  `json:"notes,omitempty"`
}

// RephrasedBullet pairs a source bullet with its reworded form
type RephrasedBullet struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ResumeDiff summarizes how the tailored résumé differs from the source
type ResumeDiff struct {
	Added     []string          `json:"added"`
	Removed   []string          `json:"removed"`
	Reordered []string          `json:"reordered"`
	Rephrased []RephrasedBullet `json:"rephrased"`
}

// ATSReport measures keyword coverage of the tailored résumé against the job
type ATSReport struct {
	KeywordCoverage float64  `json:"keyword_coverage"`
	MissingKeywords []string `json:"missing_keywords"`
	FormatWarnings  []string `json:"format_warnings"`
}

// TailoredBundle is the output of a successful tailoring run
type TailoredBundle struct {
	TailoredResume Resume                `json:"tailored_resume"`
	CoverLetter    *string               `json:"cover_letter,omitempty"`
	Coverage       []CoverageMatrixEntry `json:"coverage"`
	CoverageScore  float64               `json:"coverage_score"`
	Diff           ResumeDiff            `json:"diff"`
	Warnings       []string              `json:"warnings"`
	ATSReport      ATSReport             `json:"ats_report"`
	Rationales     []string              `json:"rationales,omitempty"`
}

// TailorResult is returned by every tailoring call. Bundle is nil when OK is false.
type TailorResult struct {
	OK     bool            `json:"ok"`
	Errors []string        `json:"errors"`
	Bundle *TailoredBundle `json:"bundle"`
}
