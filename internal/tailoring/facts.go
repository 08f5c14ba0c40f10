package tailoring

import (
	"fmt"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// ImmutableFactViolation reports an experience fact that tailoring changed.
// Path is "experience" when the number of entries differs.
type ImmutableFactViolation struct {
	Path     string
	Source   string
	Tailored string
}

func (e *ImmutableFactViolation) Error() string {
	return fmt.Sprintf("immutable fact changed at %s: source %q, tailored %q", e.Path, e.Source, e.Tailored)
}

// CheckImmutableFacts compares employer, title, start_date and end_date of
// every experience entry byte for byte. Entries are matched by position.
func CheckImmutableFacts(source, tailored *types.Resume) []*ImmutableFactViolation {
	if len(source.Experience) != len(tailored.Experience) {
		return []*ImmutableFactViolation{{
			Path:     "experience",
			Source:   fmt.Sprintf("%d entries", len(source.Experience)),
			Tailored: fmt.Sprintf("%d entries", len(tailored.Experience)),
		}}
	}

	var violations []*ImmutableFactViolation
	for i := range source.Experience {
		src, out := source.Experience[i], tailored.Experience[i]
		facts := []struct {
			field    string
			src, out string
		}{
			{"employer", src.Employer, out.Employer},
			{"title", src.Title, out.Title},
			{"start_date", src.StartDate, out.StartDate},
			{"end_date", src.EndDate, out.EndDate},
		}
		for _, f := range facts {
			if f.src != f.out {
				violations = append(violations, &ImmutableFactViolation{
					Path:     fmt.Sprintf("experience.%d.%s", i, f.field),
					Source:   f.src,
					Tailored: f.out,
				})
			}
		}
	}
	return violations
}
