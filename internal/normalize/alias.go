package normalize

import (
	"sort"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// EnumAlias maps raw onto a canonical value. Matching is case-insensitive:
// an exact alias key wins, then an exact canonical value, then the longest
// alias key contained in raw.
func EnumAlias(raw string, aliases map[string]string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", failure(types.RuleEnumAlias, raw, "empty value")
	}

	keys := make([]string, 0, len(aliases))
	for k, v := range aliases {
		if strings.ToLower(k) == s {
			return v, nil
		}
		keys = append(keys, k)
	}
	for _, v := range aliases {
		if strings.ToLower(v) == s {
			return v, nil
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return aliases[k], nil
		}
	}
	return "", failure(types.RuleEnumAlias, raw, "no alias matched")
}
