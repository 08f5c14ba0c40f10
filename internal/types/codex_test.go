package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodex_Clone(t *testing.T) {
	orig := &Codex{
		ID:           "job-card-v1",
		Version:      "1.0.0",
		Kind:         CodexKindExtraction,
		OutputSchema: json.RawMessage(`{"type":"object"}`),
		Categories:   []string{"technical_skills"},
		Prompts:      map[string]string{PromptSynthesis: "Build the record."},
		NormalizationRules: []NormalizationRule{
			{TargetPath: "work_mode", Kind: RuleEnumAlias, Aliases: map[string]string{"wfh": "remote"}},
		},
		MissingFieldRules: []MissingFieldRule{{Path: "title", Severity: SeverityError, Message: "job title not found"}},
		CriticalFields:    []string{"title"},
		KeywordPaths:      []string{"technical_skills"},
	}

	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.OutputSchema[0] = '['
	cp.Categories[0] = "x"
	cp.Prompts[PromptSynthesis] = "x"
	cp.NormalizationRules[0].Aliases["wfh"] = "x"
	cp.MissingFieldRules[0].Message = "x"
	cp.CriticalFields[0] = "x"
	cp.KeywordPaths[0] = "x"

	assert.Equal(t, `{"type":"object"}`, string(orig.OutputSchema))
	assert.Equal(t, []string{"technical_skills"}, orig.Categories)
	assert.Equal(t, "Build the record.", orig.Prompts[PromptSynthesis])
	assert.Equal(t, "remote", orig.NormalizationRules[0].Aliases["wfh"])
	assert.Equal(t, "job title not found", orig.MissingFieldRules[0].Message)
	assert.Equal(t, []string{"title"}, orig.CriticalFields)
	assert.Equal(t, []string{"technical_skills"}, orig.KeywordPaths)

	assert.Nil(t, (*Codex)(nil).Clone())
}
