package tailoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/codex-pipeline/internal/types"
)

func resumeWith(bullets ...[]string) *types.Resume {
	r := &types.Resume{}
	for i, b := range bullets {
		r.Experience = append(r.Experience, types.ExperienceEntry{Employer: string(rune('A' + i)), Bullets: b})
	}
	return r
}

func TestDiff(t *testing.T) {
	a := "Shipped the billing service in Go"
	b := "Reduced page load time by 30%"
	c := "Mentored four new engineers"

	tests := []struct {
		name     string
		source   *types.Resume
		tailored *types.Resume
		want     types.ResumeDiff
	}{
		{
			name:     "identical",
			source:   resumeWith([]string{a, b}),
			tailored: resumeWith([]string{a, b}),
		},
		{
			name:     "swapped within an entry",
			source:   resumeWith([]string{a, b}),
			tailored: resumeWith([]string{b, a}),
			want:     types.ResumeDiff{Reordered: []string{b, a}},
		},
		{
			name:     "moved to another entry",
			source:   resumeWith([]string{a}, []string{b}),
			tailored: resumeWith([]string{a, b}, []string{}),
			want:     types.ResumeDiff{Reordered: []string{b}},
		},
		{
			name:     "added and removed",
			source:   resumeWith([]string{a, b}),
			tailored: resumeWith([]string{a, c}),
			want:     types.ResumeDiff{Added: []string{c}, Removed: []string{b}},
		},
		{
			name:     "rephrased",
			source:   resumeWith([]string{a}),
			tailored: resumeWith([]string{"Shipped the new billing service in Go"}),
			want:     types.ResumeDiff{Rephrased: []types.RephrasedBullet{{From: a, To: "Shipped the new billing service in Go"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.source, tt.tailored)
			assert.ElementsMatch(t, tt.want.Added, got.Added)
			assert.ElementsMatch(t, tt.want.Removed, got.Removed)
			assert.Equal(t, nonNil(tt.want.Reordered), got.Reordered)
			assert.ElementsMatch(t, tt.want.Rephrased, got.Rephrased)
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("", ""))
	assert.Equal(t, 1.0, Jaccard("Go, Kubernetes", "kubernetes go"))
	assert.Equal(t, 0.0, Jaccard("Go", "Rust"))
	assert.InDelta(t, 0.5, Jaccard("built go services", "built rust services"), 1e-9)
}
