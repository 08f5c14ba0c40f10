package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("extraction.json", "raw_extraction")
	require.NoError(t, err)
	assert.Contains(t, prompt, "source_quote")
	assert.Contains(t, prompt, "{{.Subject}}")
}

func TestGet_Errors(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")

	_, err = Get("extraction.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("tailoring.json", "rewrite"))
	})
}

func TestResolve(t *testing.T) {
	ClearCache()

	tests := []struct {
		name    string
		in      string
		isRef   bool
		wantErr bool
	}{
		{"reference", "tailoring.json#align", true, false},
		{"inline template", "Extract every skill from the {{.Subject}}.", false, false},
		{"hash inside prose", "Use item #3 from extraction.json", false, false},
		{"missing key", "tailoring.json#nope", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isRef, IsRef(tt.in))
			got, err := Resolve(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.isRef {
				assert.Contains(t, got, "coverage")
			} else {
				assert.Equal(t, tt.in, got)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"replaces", "Read the {{.Subject}} for {{.Fields}}", map[string]string{"Subject": "job posting", "Fields": "title"}, "Read the job posting for title"},
		{"no placeholders", "No placeholders here", map[string]string{"Key": "Value"}, "No placeholders here"},
		{"unknown placeholder kept", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("extraction.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"classification", "raw_extraction", "synthesis"}, keys)

	keys, err = List("tailoring.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"align", "cover_letter", "rationale", "rewrite"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get("extraction.json", "synthesis")
	require.NoError(t, err)

	prompt2, err := Get("extraction.json", "synthesis")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
