package codex

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/codex-pipeline/internal/schemas"
	"github.com/jonathan/codex-pipeline/internal/types"
)

var requiredPrompts = map[types.CodexKind][]string{
	types.CodexKindExtraction:     {types.PromptRawExtraction, types.PromptClassification, types.PromptSynthesis},
	types.CodexKindTransformation: {types.PromptAlign, types.PromptRewrite},
}

// Validate checks a codex as one unit and returns a *ConfigurationError
// listing every problem found, or nil.
func Validate(v *validator.Validate, c *types.Codex) error {
	if c == nil {
		return &ConfigurationError{Problems: []string{"codex is empty"}}
	}
	var problems []string

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	for i, rule := range c.NormalizationRules {
		if !rule.Kind.Valid() {
			problems = append(problems, fmt.Sprintf("normalization_rules[%d]: unknown kind %q", i, rule.Kind))
		}
		if rule.Kind == types.RuleEnumAlias && len(rule.Aliases) == 0 {
			problems = append(problems, fmt.Sprintf("normalization_rules[%d]: ENUM_ALIAS needs aliases", i))
		}
	}
	for i, rule := range c.MissingFieldRules {
		if !rule.Severity.Valid() {
			problems = append(problems, fmt.Sprintf("missing_field_rules[%d]: unknown severity %q", i, rule.Severity))
		}
	}

	if len(c.OutputSchema) > 0 {
		if _, err := schemas.Compile(c.OutputSchema); err != nil {
			problems = append(problems, fmt.Sprintf("output_schema: %v", err))
		}
	}

	for _, name := range requiredPrompts[c.Kind] {
		if c.Prompts[name] == "" {
			problems = append(problems, fmt.Sprintf("prompts: %q is required for %s codexes", name, c.Kind))
		}
	}
	if c.Kind == types.CodexKindExtraction && len(c.Categories) == 0 {
		problems = append(problems, "categories: extraction codexes need at least one category")
	}

	if len(problems) > 0 {
		return &ConfigurationError{CodexID: c.ID, Problems: problems}
	}
	return nil
}
