package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordSchema = `{
	"type": "object",
	"required": ["title", "technical_skills"],
	"properties": {
		"title": {"type": "string"},
		"technical_skills": {"type": "array", "items": {"type": "string"}},
		"employment_type": {"enum": ["full_time", "part_time", "contract"]},
		"location": {
			"type": "object",
			"required": ["city"],
			"properties": {"city": {"type": "string"}}
		}
	}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateJSON(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", recordSchema)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", `{"title": "Engineer", "technical_skills": ["Go"]}`, false},
		{"missing field", `{"title": "Engineer"}`, true},
		{"wrong type", `{"title": 42, "technical_skills": []}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jsonPath := writeFile(t, dir, tt.name+".json", tt.doc)
			err := ValidateJSON(schemaPath, jsonPath)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidateJSON_NotFound(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", recordSchema)
	jsonPath := writeFile(t, dir, "doc.json", `{}`)

	err := ValidateJSON(filepath.Join(dir, "nonexistent_schema.json"), jsonPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = ValidateJSON(schemaPath, filepath.Join(dir, "nonexistent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSONString(t *testing.T) {
	assert.NoError(t, ValidateJSONString(recordSchema, `{"title": "x", "technical_skills": []}`))

	err := ValidateJSONString(recordSchema, `{"title": "x"}`)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "technical_skills", validationErr.Errors[0].Field)

	err = ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestCompile(t *testing.T) {
	_, err := Compile(json.RawMessage(recordSchema))
	require.NoError(t, err)

	_, err = Compile(nil)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)

	_, err = Compile(json.RawMessage(`{"type": "not-a-type"}`))
	require.ErrorAs(t, err, &loadErr)
}

func TestSchema_Validate_FieldPaths(t *testing.T) {
	s, err := Compile(json.RawMessage(recordSchema))
	require.NoError(t, err)

	err = s.Validate(map[string]any{
		"technical_skills": []any{"Go", 7.0},
		"employment_type":  "freelance",
		"location":         map[string]any{},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	fields := make([]string, 0)
	for _, fe := range validationErr.ByField() {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"employment_type", "location.city", "technical_skills.1", "title"}, fields)
}

func TestSchema_Validate_Struct(t *testing.T) {
	s, err := Compile(json.RawMessage(recordSchema))
	require.NoError(t, err)

	type card struct {
		Title  string   `json:"title"`
		Skills []string `json:"technical_skills"`
	}
	assert.NoError(t, s.Validate(card{Title: "Engineer", Skills: []string{"Go"}}))
}

func TestValidationError_ByField(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "title", Message: "a"},
		{Field: "salary", Message: "b"},
		{Field: "title", Message: "c"},
	}}

	assert.Equal(t, []FieldError{
		{Field: "salary", Message: "b"},
		{Field: "title", Message: "a; c"},
	}, ve.ByField())
	assert.Contains(t, ve.Error(), "1. title: a")
}

func TestResolveSchemaPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "codex.schema.json", `{}`)

	assert.Equal(t, path, ResolveSchemaPath(path))
	assert.Equal(t, "", ResolveSchemaPath(filepath.Join(dir, "missing.json")))
}
