package tailoring

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/schemas"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// finalize runs the deterministic checks on a rewritten résumé and fills the
// bundle. It returns the errors that make the result unusable; schema
// violations and other findings only become warnings.
func (t *Tailorer) finalize(bundle *types.TailoredBundle, c *types.Codex, source, tailored *types.Resume, job *types.StructuredRecord, sourceText string, opts Options, log *zap.Logger) []string {
	if violations := CheckImmutableFacts(source, tailored); len(violations) > 0 {
		errs := make([]string, 0, len(violations))
		for _, v := range violations {
			log.Warn("rewrite changed an immutable fact",
				zap.String("path", v.Path),
				zap.String("source", v.Source),
				zap.String("tailored", v.Tailored))
			errs = append(errs, v.Error())
		}
		return errs
	}

	bundle.Warnings = append(bundle.Warnings, t.schemaWarnings(c, tailored, log)...)

	bundle.TailoredResume = *tailored
	bundle.Diff = Diff(source, tailored)

	for _, e := range bundle.Coverage {
		if e.Confidence < opts.CoverageThreshold {
			bundle.Warnings = append(bundle.Warnings,
				fmt.Sprintf("weak coverage for %q (%.0f%%)", e.JDItem, e.Confidence*100))
		}
	}
	if len(bundle.Coverage) > 0 && bundle.CoverageScore < opts.CoverageThreshold {
		bundle.Warnings = append(bundle.Warnings,
			fmt.Sprintf("overall coverage %.0f%% is below %.0f%%", bundle.CoverageScore*100, opts.CoverageThreshold*100))
	}

	for _, n := range NewNumbers(sourceText, resumeText(tailored)) {
		bundle.Warnings = append(bundle.Warnings, fmt.Sprintf("number %q does not appear in the source résumé", n))
	}

	bundle.ATSReport = ATS(tailored, Keywords(job, c.KeywordPaths))
	return nil
}

func (t *Tailorer) schemaWarnings(c *types.Codex, tailored *types.Resume, log *zap.Logger) []string {
	schema, err := t.schemaFor(c)
	if err != nil {
		log.Warn("tailoring output schema unusable", zap.Error(err))
		return []string{"tailored résumé could not be checked against the output schema"}
	}
	err = schema.Validate(tailored)
	if err == nil {
		return nil
	}
	var verr *schemas.ValidationError
	if !errors.As(err, &verr) {
		return []string{"schema: " + err.Error()}
	}
	fields := verr.ByField()
	t.metrics.FlagsAdd(metrics.FlagSchema, len(fields))
	warnings := make([]string, 0, len(fields))
	for _, fe := range fields {
		warnings = append(warnings, fmt.Sprintf("schema: %s: %s", fe.Field, fe.Message))
	}
	return warnings
}
