package tailoring

import (
	"strings"
	"unicode"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// RephraseThreshold is the minimum word-set Jaccard similarity for a changed
// bullet to count as a rephrasing of a source bullet
const RephraseThreshold = 0.5

type bulletPos struct {
	entry, index int
	text         string
}

func bullets(r *types.Resume) []bulletPos {
	var out []bulletPos
	for i, exp := range r.Experience {
		for j, b := range exp.Bullets {
			out = append(out, bulletPos{entry: i, index: j, text: b})
		}
	}
	return out
}

// Diff compares experience bullets. Identical bullets at a different
// position are reordered; a changed bullet similar enough to an unused
// source bullet is rephrased; the rest are added or removed.
func Diff(source, tailored *types.Resume) types.ResumeDiff {
	diff := types.ResumeDiff{
		Added:     []string{},
		Removed:   []string{},
		Reordered: []string{},
		Rephrased: []types.RephrasedBullet{},
	}
	src := bullets(source)
	out := bullets(tailored)
	usedSrc := make([]bool, len(src))
	matchedOut := make([]bool, len(out))

	// exact matches first, preferring the same position
	for oi, o := range out {
		best := -1
		for si, s := range src {
			if usedSrc[si] || s.text != o.text {
				continue
			}
			if s.entry == o.entry && s.index == o.index {
				best = si
				break
			}
			if best < 0 {
				best = si
			}
		}
		if best < 0 {
			continue
		}
		usedSrc[best] = true
		matchedOut[oi] = true
		if src[best].entry != o.entry || src[best].index != o.index {
			diff.Reordered = append(diff.Reordered, o.text)
		}
	}

	for oi, o := range out {
		if matchedOut[oi] {
			continue
		}
		best, bestScore := -1, 0.0
		for si, s := range src {
			if usedSrc[si] {
				continue
			}
			if score := Jaccard(s.text, o.text); score > bestScore {
				best, bestScore = si, score
			}
		}
		if best >= 0 && bestScore >= RephraseThreshold {
			usedSrc[best] = true
			diff.Rephrased = append(diff.Rephrased, types.RephrasedBullet{From: src[best].text, To: o.text})
			continue
		}
		diff.Added = append(diff.Added, o.text)
	}

	for si, s := range src {
		if !usedSrc[si] {
			diff.Removed = append(diff.Removed, s.text)
		}
	}
	return diff
}

// Jaccard is the similarity of the lower-cased word sets of a and b
func Jaccard(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	}) {
		set[w] = true
	}
	return set
}
