package normalize

import (
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/fieldpath"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// Result counts the values touched by Apply
type Result struct {
	Applied int
	Failed  int
}

// Apply runs the codex's normalization rules in order against the record.
// String values (and strings inside arrays) at each target path are replaced
// when they parse; values that do not parse are left untouched.
func Apply(record *types.StructuredRecord, codex *types.Codex, log *zap.Logger) Result {
	log = logger.OrNop(log)
	var res Result
	if record == nil || codex == nil {
		return res
	}

	for _, rule := range codex.NormalizationRules {
		for _, path := range fieldpath.Expand(record.Fields, rule.TargetPath) {
			value, _ := fieldpath.Get(record.Fields, path)
			switch v := value.(type) {
			case string:
				out, err := Normalize(v, rule)
				if err != nil {
					res.Failed++
					log.Debug("normalization kept raw value", zap.String("path", path), zap.Error(err))
					continue
				}
				if err := fieldpath.Set(record.Fields, path, jsonValue(out)); err != nil {
					res.Failed++
					continue
				}
				res.Applied++
			case []any:
				for i, elem := range v {
					s, ok := elem.(string)
					if !ok {
						continue
					}
					out, err := Normalize(s, rule)
					if err != nil {
						res.Failed++
						log.Debug("normalization kept raw value", zap.String("path", path), zap.Int("index", i), zap.Error(err))
						continue
					}
					v[i] = jsonValue(out)
					res.Applied++
				}
			}
		}
	}
	return res
}

// jsonValue converts a normalized value into the decoded-JSON representation
// used by record fields.
func jsonValue(v any) any {
	switch val := v.(type) {
	case CurrencyRange:
		return map[string]any{
			"min":      val.Min,
			"max":      val.Max,
			"currency": val.Currency,
			"unit":     val.Unit,
		}
	case int:
		return float64(val)
	}
	return v
}
