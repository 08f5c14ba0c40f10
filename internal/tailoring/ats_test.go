package tailoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/codex-pipeline/internal/types"
)

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		text string
		kw   string
		want bool
	}{
		{"Ran Go services", "Go", true},
		{"Worked at Google", "Go", false},
		{"C++ and Go", "C++", true},
		{"experience with node.js", "Node.js", true},
		{"kubernetes", "Kubernetes", true},
		{"", "Go", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.kw, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsKeyword(tt.text, tt.kw))
		})
	}
}

func TestKeywords(t *testing.T) {
	job := types.NewStructuredRecord(map[string]any{
		"technical_skills":    []any{"Go", "go", "PostgreSQL", ""},
		"soft_skills":         []string{"Communication"},
		"experience_required": "At least five years of backend development experience",
	})

	got := Keywords(job, []string{"technical_skills", "soft_skills", "experience_required", "missing"})

	assert.Equal(t, []string{"Go", "PostgreSQL", "Communication"}, got)
	assert.Nil(t, Keywords(nil, []string{"technical_skills"}))
}

func TestATS(t *testing.T) {
	t.Run("no keywords means full coverage", func(t *testing.T) {
		r := &types.Resume{Email: "a@b.c", Skills: []string{"Go"}}
		report := ATS(r, nil)
		assert.Equal(t, 1.0, report.KeywordCoverage)
		assert.Empty(t, report.MissingKeywords)
		assert.Empty(t, report.FormatWarnings)
	})

	t.Run("missing keywords are sorted", func(t *testing.T) {
		r := &types.Resume{Email: "a@b.c", Skills: []string{"Go"}}
		report := ATS(r, []string{"Terraform", "Go", "AWS"})
		assert.InDelta(t, 1.0/3.0, report.KeywordCoverage, 1e-9)
		assert.Equal(t, []string{"AWS", "Terraform"}, report.MissingKeywords)
	})

	t.Run("format warnings", func(t *testing.T) {
		r := &types.Resume{
			Summary: strings.Repeat("x", maxSummaryLength+1),
			Experience: []types.ExperienceEntry{{
				Bullets: []string{strings.Repeat("y", maxBulletLength+1), "★ Led the team"},
			}},
		}
		report := ATS(r, nil)
		assert.Equal(t, []string{
			"no email address",
			"skills section is empty",
			"summary is longer than 600 characters",
			"experience.0.bullets.0 is longer than 220 characters",
			"experience.0.bullets.1 contains decorative symbols",
		}, report.FormatWarnings)
	})
}
