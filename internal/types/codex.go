// Package types provides type definitions for structured data used throughout the codex pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// CodexKind distinguishes extraction codexes from transformation (tailoring) codexes
type CodexKind string

const (
	// CodexKindExtraction drives the three-pass extraction sequence
	CodexKindExtraction CodexKind = "extraction"
	// CodexKindTransformation drives résumé tailoring
	CodexKindTransformation CodexKind = "transformation"
)

// RuleKind enumerates the normalization grammars a codex can declare
type RuleKind string

// Normalization rule kinds
const (
	RuleEnumAlias     RuleKind = "ENUM_ALIAS"
	RuleCurrencyRange RuleKind = "CURRENCY_RANGE"
	RuleDateISO       RuleKind = "DATE_ISO"
	RuleHoursPerWeek  RuleKind = "HOURS_PER_WEEK"
)

// Valid reports whether k is one of the known rule kinds
func (k RuleKind) Valid() bool {
	switch k {
	case RuleEnumAlias, RuleCurrencyRange, RuleDateISO, RuleHoursPerWeek:
		return true
	}
	return false
}

// Severity of a flag raised against a record field
type Severity string

// Flag severities
const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarn || s == SeverityError
}

// Prompt template names used by the orchestrators
const (
	PromptRawExtraction  = "raw_extraction"
	PromptClassification = "classification"
	PromptSynthesis      = "synthesis"
	PromptAlign          = "align"
	PromptRewrite        = "rewrite"
	PromptCoverLetter    = "cover_letter"
	PromptRationale      = "rationale"
)

// NormalizationRule converts the free-text value at TargetPath into a typed value.
// TargetPath may contain "*" segments that expand over array elements.
type NormalizationRule struct {
	TargetPath string            `json:"target_path" validate:"required"`
	Kind       RuleKind          `json:"kind" validate:"required"`
	Aliases    map[string]string `json:"aliases,omitempty"` // ENUM_ALIAS only: alias -> canonical
}

// MissingFieldRule raises a flag when the value at Path is absent or empty
type MissingFieldRule struct {
	Path     string   `json:"path" validate:"required"`
	Severity Severity `json:"severity" validate:"required"`
	Message  string   `json:"message" validate:"required"`
}

// Codex is a versioned, data-only configuration bundling the output schema,
// prompt templates, normalization rules and missing-field rules.
// A codex is replaced as a whole; there are no partial updates.
type Codex struct {
	ID                 string              `json:"id" validate:"required,max=128"`
	Version            string              `json:"version" validate:"required"`
	Kind               CodexKind           `json:"kind" validate:"required,oneof=extraction transformation"`
	Description        string              `json:"description,omitempty"`
	Subject            string              `json:"subject,omitempty"` // document kind named in prompts, e.g. "job posting"
	OutputSchema       json.RawMessage     `json:"output_schema" validate:"required"`
	Categories         []string            `json:"categories,omitempty"`
	Prompts            map[string]string   `json:"prompts" validate:"required"`
	NormalizationRules []NormalizationRule `json:"normalization_rules,omitempty" validate:"dive"`
	MissingFieldRules  []MissingFieldRule  `json:"missing_field_rules,omitempty" validate:"dive"`
	CriticalFields     []string            `json:"critical_fields,omitempty"`
	KeywordPaths       []string            `json:"keyword_paths,omitempty"`
	CreatedAt          time.Time           `json:"created_at,omitempty"`
}

// HasCategory reports whether name is one of the codex's classification buckets
func (c *Codex) HasCategory(name string) bool {
	for _, cat := range c.Categories {
		if cat == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c
func (c *Codex) Clone() *Codex {
	if c == nil {
		return nil
	}
	out := *c
	out.OutputSchema = slices.Clone(c.OutputSchema)
	out.Categories = slices.Clone(c.Categories)
	out.CriticalFields = slices.Clone(c.CriticalFields)
	out.KeywordPaths = slices.Clone(c.KeywordPaths)
	out.MissingFieldRules = slices.Clone(c.MissingFieldRules)
	out.Prompts = maps.Clone(c.Prompts)
	out.NormalizationRules = slices.Clone(c.NormalizationRules)
	for i := range out.NormalizationRules {
		out.NormalizationRules[i].Aliases = maps.Clone(out.NormalizationRules[i].Aliases)
	}
	return &out
}
