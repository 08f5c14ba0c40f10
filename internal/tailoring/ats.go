package tailoring

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/fieldpath"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// Limits used by the ATS format checks
const (
	maxKeywordWords  = 4
	maxBulletLength  = 220
	maxSummaryLength = 600
	maxBulletsPerJob = 8
)

// decorativeRunes are symbols many applicant tracking systems drop or garble
const decorativeRunes = "★☆✓✔➤►▪◆●■"

// Keywords collects the distinct short values at the codex's keyword paths
// in the job record. Long requirement sentences are not keywords.
func Keywords(job *types.StructuredRecord, paths []string) []string {
	if job == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(v any) {
		s, ok := v.(string)
		if !ok {
			return
		}
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] || len(strings.Fields(s)) > maxKeywordWords {
			return
		}
		seen[key] = true
		out = append(out, s)
	}
	for _, path := range paths {
		for _, p := range fieldpath.Expand(job.Fields, path) {
			value, _ := fieldpath.Get(job.Fields, p)
			switch list := value.(type) {
			case []any:
				for _, item := range list {
					add(item)
				}
			case []string:
				for _, item := range list {
					add(item)
				}
			default:
				add(value)
			}
		}
	}
	return out
}

// ContainsKeyword matches kw in text case-insensitively on word boundaries,
// so "Go" does not match "Google".
func ContainsKeyword(text, kw string) bool {
	re, err := regexp.Compile(`(?i)(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(kw) + `($|[^\p{L}\p{N}])`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// ATS builds the keyword coverage and format report for a tailored résumé.
// With no keywords the coverage is 1.
func ATS(tailored *types.Resume, keywords []string) types.ATSReport {
	report := types.ATSReport{KeywordCoverage: 1, MissingKeywords: []string{}, FormatWarnings: []string{}}
	text := resumeText(tailored)

	if len(keywords) > 0 {
		matched := 0
		for _, kw := range keywords {
			if ContainsKeyword(text, kw) {
				matched++
			} else {
				report.MissingKeywords = append(report.MissingKeywords, kw)
			}
		}
		sort.Strings(report.MissingKeywords)
		report.KeywordCoverage = float64(matched) / float64(len(keywords))
	}

	report.FormatWarnings = formatWarnings(tailored)
	return report
}

func formatWarnings(r *types.Resume) []string {
	warnings := []string{}
	if strings.TrimSpace(r.Email) == "" {
		warnings = append(warnings, "no email address")
	}
	if len(r.Skills) == 0 {
		warnings = append(warnings, "skills section is empty")
	}
	if len(r.Summary) > maxSummaryLength {
		warnings = append(warnings, fmt.Sprintf("summary is longer than %d characters", maxSummaryLength))
	}
	for i, exp := range r.Experience {
		if len(exp.Bullets) > maxBulletsPerJob {
			warnings = append(warnings, fmt.Sprintf("experience.%d has more than %d bullets", i, maxBulletsPerJob))
		}
		for j, b := range exp.Bullets {
			if len(b) > maxBulletLength {
				warnings = append(warnings, fmt.Sprintf("experience.%d.bullets.%d is longer than %d characters", i, j, maxBulletLength))
			}
			if strings.ContainsAny(b, decorativeRunes) {
				warnings = append(warnings, fmt.Sprintf("experience.%d.bullets.%d contains decorative symbols", i, j))
			}
		}
	}
	return warnings
}
