// Package normalize converts free-text record values into canonical typed
// values according to a codex's normalization rules.
package normalize

import (
	"fmt"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// Normalize converts raw according to rule. It is pure and performs no I/O.
//
// Result types by kind:
//   - DATE_ISO: string "YYYY-MM-DD"
//   - CURRENCY_RANGE: CurrencyRange
//   - HOURS_PER_WEEK: int
//   - ENUM_ALIAS: string (canonical value)
func Normalize(raw string, rule types.NormalizationRule) (any, error) {
	switch rule.Kind {
	case types.RuleDateISO:
		return DateISO(raw)
	case types.RuleCurrencyRange:
		return ParseCurrencyRange(raw)
	case types.RuleHoursPerWeek:
		return HoursPerWeek(raw)
	case types.RuleEnumAlias:
		return EnumAlias(raw, rule.Aliases)
	}
	return nil, failure(rule.Kind, raw, fmt.Sprintf("unknown rule kind %q", rule.Kind))
}
