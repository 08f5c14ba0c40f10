package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// CurrencyRange is a normalized pay range. A single amount has Min == Max.
type CurrencyRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
	Unit     string  `json:"unit"`
}

// String renders the range as "<min>-<max> <CUR> per <unit>", which
// ParseCurrencyRange accepts.
func (r CurrencyRange) String() string {
	return fmt.Sprintf("%s-%s %s per %s",
		strconv.FormatFloat(r.Min, 'f', -1, 64),
		strconv.FormatFloat(r.Max, 'f', -1, 64),
		r.Currency, r.Unit)
}

var (
	currencySymbols = map[string]string{"$": "USD", "€": "EUR", "£": "GBP", "¥": "JPY", "₹": "INR"}

	payUnits = map[string]string{
		"hour": "hour", "hr": "hour", "hourly": "hour",
		"day": "day", "daily": "day",
		"month": "month", "mo": "month", "monthly": "month",
		"year": "year", "yr": "year", "annum": "year", "annual": "year", "annually": "year",
	}

	unitPattern    = regexp.MustCompile(`(?i)(?:(?:per|an|a)\s+|/\s*)?\b(hourly|hour|hr|daily|day|monthly|month|mo|annually|annual|annum|year|yr)\.?\s*$`)
	amountPattern  = regexp.MustCompile(`(?i)(\d(?:[\d,.]*\d)?)(\s*k\b)?`)
	decimalPattern = regexp.MustCompile(`^\d[\d,]*(?:\.\d{1,2}|\.\d{4,})?$`)
	codePattern    = regexp.MustCompile(`(?i)\b([a-z]{3})\b`)

	isoCodes = map[string]bool{
		"USD": true, "EUR": true, "GBP": true, "JPY": true, "INR": true, "CAD": true, "AUD": true,
		"CHF": true, "CNY": true, "SEK": true, "NOK": true, "DKK": true, "PLN": true, "NZD": true,
		"SGD": true, "HKD": true, "BRL": true, "MXN": true, "ZAR": true, "CZK": true, "ILS": true,
	}
)

// currencyOf prefers an ISO code over a symbol
func currencyOf(s string) string {
	for _, m := range codePattern.FindAllStringSubmatch(s, -1) {
		if code := strings.ToUpper(m[1]); isoCodes[code] {
			return code
		}
	}
	for _, sym := range []string{"$", "€", "£", "¥", "₹"} {
		if strings.Contains(s, sym) {
			return currencySymbols[sym]
		}
	}
	return ""
}

// ParseCurrencyRange parses strings such as "$100k - $120k per year",
// "80,000 to 95,000 EUR annually" or "45 USD/hr".
func ParseCurrencyRange(raw string) (CurrencyRange, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("–", "-", "—", "-").Replace(s)

	m := unitPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return CurrencyRange{}, failure(types.RuleCurrencyRange, raw, "missing pay period")
	}
	unit := payUnits[strings.ToLower(s[m[2]:m[3]])]
	rest := s[:m[0]]

	currency := currencyOf(rest)
	if currency == "" {
		return CurrencyRange{}, failure(types.RuleCurrencyRange, raw, "missing currency")
	}

	amounts := amountPattern.FindAllStringSubmatch(rest, -1)
	if len(amounts) == 0 || len(amounts) > 2 {
		return CurrencyRange{}, failure(types.RuleCurrencyRange, raw, fmt.Sprintf("expected one or two amounts, found %d", len(amounts)))
	}
	values := make([]float64, 0, 2)
	for _, a := range amounts {
		// "80.000" is a dotted thousands group, not eighty
		if !decimalPattern.MatchString(a[1]) {
			return CurrencyRange{}, failure(types.RuleCurrencyRange, raw, fmt.Sprintf("ambiguous amount %q", a[1]))
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(a[1], ",", ""), 64)
		if err != nil {
			return CurrencyRange{}, &NormalizationFailure{Kind: types.RuleCurrencyRange, Raw: raw, Message: "invalid amount", Cause: err}
		}
		if strings.TrimSpace(a[2]) != "" {
			v *= 1000
		}
		values = append(values, v)
	}
	// "100-120k": the suffix on the upper bound applies to both
	if len(values) == 2 && strings.TrimSpace(amounts[0][2]) == "" && strings.TrimSpace(amounts[1][2]) != "" && values[0]*1000 <= values[1] {
		values[0] *= 1000
	}

	out := CurrencyRange{Min: values[0], Max: values[len(values)-1], Currency: currency, Unit: unit}
	if out.Min > out.Max {
		return CurrencyRange{}, failure(types.RuleCurrencyRange, raw, "minimum exceeds maximum")
	}
	return out, nil
}
