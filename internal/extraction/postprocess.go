package extraction

import (
	"errors"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/evidence"
	"github.com/jonathan/codex-pipeline/internal/fieldpath"
	"github.com/jonathan/codex-pipeline/internal/flagging"
	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/normalize"
	"github.com/jonathan/codex-pipeline/internal/schemas"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// SchemaMessagePrefix starts the message of every schema-violation flag
const SchemaMessagePrefix = "schema: "

// PostReport summarizes the deterministic post-processing of one record
type PostReport struct {
	Normalized       normalize.Result
	SchemaViolations []string
	Evidence         evidence.Report
	Flags            flagging.Result
}

// postProcess runs normalization, the output-schema check, evidence
// validation and flagging, in that order. Only an unusable schema is an error.
// A missing value covered by one of the codex's missing-field rules is left
// to that rule, so the codex's severity and message win over the schema's.
func (o *Orchestrator) postProcess(record *types.StructuredRecord, c *types.Codex, source string, log *zap.Logger) (PostReport, error) {
	var report PostReport

	report.Normalized = normalize.Apply(record, c, log)

	schema, err := o.schemaFor(c)
	if err != nil {
		return report, err
	}
	report.SchemaViolations = SchemaFlags(record, schema, c.MissingFieldRules)

	report.Evidence = evidence.Validate(record, source, c.CriticalFields)
	report.Flags = flagging.Apply(record, c)

	o.metrics.FlagsAdd(metrics.FlagSchema, len(report.SchemaViolations))
	o.metrics.FlagsAdd(metrics.FlagNoEvidence, len(report.Evidence.Flagged))
	o.metrics.FlagsAdd(metrics.FlagMissing, len(report.Flags.Missing))
	o.metrics.FlagsAdd(metrics.FlagLowConfidence, len(report.Flags.LowConfidence))
	o.metrics.EvidenceDroppedAdd(len(report.Evidence.Dropped))

	for _, dropped := range report.Evidence.Dropped {
		log.Debug("evidence dropped",
			zap.String("field_path", dropped.Evidence.FieldPath),
			zap.String("reason", dropped.Reason))
	}
	return report, nil
}

// SchemaFlags validates the record fields and raises one error-severity flag
// per violating path, skipping absent or empty paths that one of rules
// covers. It returns the flagged paths.
func SchemaFlags(record *types.StructuredRecord, schema *schemas.Schema, rules []types.MissingFieldRule) []string {
	err := schema.Validate(record.Fields)
	if err == nil {
		return nil
	}
	var flagged []string
	var verr *schemas.ValidationError
	if !errors.As(err, &verr) {
		if record.AddFlag(types.Flag{Path: schemas.RootField, Severity: types.SeverityError, Message: SchemaMessagePrefix + err.Error()}) {
			flagged = append(flagged, schemas.RootField)
		}
		return flagged
	}
	covered := make(map[string]bool, len(rules))
	for _, rule := range rules {
		covered[rule.Path] = true
	}
	for _, fe := range verr.ByField() {
		if covered[fe.Field] && missing(record.Fields, fe.Field) {
			continue
		}
		if record.AddFlag(types.Flag{Path: fe.Field, Severity: types.SeverityError, Message: SchemaMessagePrefix + fe.Message}) {
			flagged = append(flagged, fe.Field)
		}
	}
	return flagged
}

func missing(fields map[string]any, path string) bool {
	value, ok := fieldpath.Get(fields, path)
	return !ok || fieldpath.IsEmpty(value)
}
