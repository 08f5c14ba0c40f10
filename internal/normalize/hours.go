package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/types"
)

const (
	fullTimeHours = 40
	partTimeHours = 20
	maxWeekHours  = 80
)

var (
	hoursPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours|hour|hrs|hr|h)\b(?:\s*(?:/|per|a)\s*(?:week|wk|w)\b)?`)
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	fullTime       = regexp.MustCompile(`(?i)\bfull[\s-]?time\b`)
	partTime       = regexp.MustCompile(`(?i)\bpart[\s-]?time\b`)
)

// HoursPerWeek parses weekly working hours. Explicit hour counts win over
// percentages, which win over full-time/part-time wording.
func HoursPerWeek(raw string) (int, error) {
	s := strings.TrimSpace(raw)

	var hours float64
	switch {
	case hoursPattern.MatchString(s):
		v, err := strconv.ParseFloat(hoursPattern.FindStringSubmatch(s)[1], 64)
		if err != nil {
			return 0, &NormalizationFailure{Kind: types.RuleHoursPerWeek, Raw: raw, Message: "invalid hours", Cause: err}
		}
		hours = v
	case percentPattern.MatchString(s):
		v, err := strconv.ParseFloat(percentPattern.FindStringSubmatch(s)[1], 64)
		if err != nil {
			return 0, &NormalizationFailure{Kind: types.RuleHoursPerWeek, Raw: raw, Message: "invalid percentage", Cause: err}
		}
		hours = fullTimeHours * v / 100
	case fullTime.MatchString(s):
		hours = fullTimeHours
	case partTime.MatchString(s):
		hours = partTimeHours
	default:
		return 0, failure(types.RuleHoursPerWeek, raw, "no weekly hours found")
	}

	n := int(math.Round(hours))
	if n < 1 || n > maxWeekHours {
		return 0, failure(types.RuleHoursPerWeek, raw, "hours out of range 1-80")
	}
	return n, nil
}
