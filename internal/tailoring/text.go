package tailoring

import (
	"regexp"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/types"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*%?`)

// resumeText flattens every string in the résumé, one per line
func resumeText(r *types.Resume) string {
	var parts []string
	add := func(s ...string) {
		for _, v := range s {
			if strings.TrimSpace(v) != "" {
				parts = append(parts, v)
			}
		}
	}
	add(r.Name, r.Email, r.Phone, r.Summary)
	add(r.Skills...)
	for _, exp := range r.Experience {
		add(exp.Employer, exp.Title, exp.StartDate, exp.EndDate, exp.Location)
		add(exp.Bullets...)
	}
	for _, edu := range r.Education {
		add(edu.Institution, edu.Degree, edu.Field, edu.EndDate)
	}
	return strings.Join(parts, "\n")
}

// NewNumbers returns numbers in the tailored text that the source never
// mentions, in order of first appearance
func NewNumbers(sourceText, tailoredText string) []string {
	known := make(map[string]bool)
	for _, n := range numberPattern.FindAllString(sourceText, -1) {
		known[n] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, n := range numberPattern.FindAllString(tailoredText, -1) {
		if known[n] || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
