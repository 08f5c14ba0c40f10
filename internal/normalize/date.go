package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jonathan/codex-pipeline/internal/types"
)

const isoDate = "2006-01-02"

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	yearMonth = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)

	// ongoing markers are kept verbatim
	ongoing = map[string]bool{"present": true, "current": true, "now": true, "today": true, "ongoing": true}

	monthLayouts = []string{"January 2006", "Jan 2006", "Jan. 2006", "January, 2006", "Jan, 2006"}
	dayLayouts   = []string{"January 2, 2006", "Jan 2, 2006", "2 January 2006", "2 Jan 2006"}
)

// DateISO parses a date and renders it as YYYY-MM-DD. Month-only inputs
// resolve to the first of the month, year-only inputs to January 1st.
func DateISO(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", failure(types.RuleDateISO, raw, "empty value")
	}
	if ongoing[strings.ToLower(s)] {
		return "", failure(types.RuleDateISO, raw, "open-ended date")
	}

	if yearOnly.MatchString(s) {
		t, err := time.Parse("2006", s)
		if err != nil {
			return "", &NormalizationFailure{Kind: types.RuleDateISO, Raw: raw, Message: "invalid year", Cause: err}
		}
		return t.Format(isoDate), nil
	}
	if m := yearMonth.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return "", failure(types.RuleDateISO, raw, "invalid month")
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(isoDate), nil
	}
	for _, layout := range append(monthLayouts, dayLayouts...) {
		if t, err := time.Parse(layout, titleMonth(s)); err == nil {
			return t.Format(isoDate), nil
		}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", &NormalizationFailure{Kind: types.RuleDateISO, Raw: raw, Message: "unrecognized date", Cause: err}
	}
	return t.Format(isoDate), nil
}

// titleMonth upper-cases the first letter so "march 2024" matches "January 2006"
func titleMonth(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
