// Package schemas provides JSON Schema validation for codex output schemas,
// extracted records and tailored résumés.
package schemas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// RootField names the document root in FieldError.Field
const RootField = "(root)"

// ResolveSchemaPath finds a schema file relative to the working directory or
// up to two parent directories, so CLI commands work from any subdirectory.
// Returns "" when nothing is found.
func ResolveSchemaPath(relativePath string) string {
	candidates := []string{
		relativePath,
		filepath.Join("..", relativePath),
		filepath.Join("..", "..", relativePath),
	}

	for _, candidate := range candidates {
		if absPath, err := filepath.Abs(candidate); err == nil {
			if _, err := os.Stat(absPath); err == nil {
				return absPath
			}
		}
	}

	return ""
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field.
// Field is a dotted path such as "experience.0.employer".
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ByField groups messages per field path, one joined message per path,
// with paths in sorted order.
func (ve *ValidationError) ByField() []FieldError {
	grouped := make(map[string][]string)
	for _, fe := range ve.Errors {
		grouped[fe.Field] = append(grouped[fe.Field], fe.Message)
	}
	fields := make([]string, 0, len(grouped))
	for f := range grouped {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]FieldError, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldError{Field: f, Message: strings.Join(grouped[f], "; ")})
	}
	return out
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Schema is a compiled JSON Schema, safe for concurrent use
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile parses and compiles a JSON Schema document
func Compile(raw json.RawMessage) (*Schema, error) {
	if len(raw) == 0 {
		return nil, &SchemaLoadError{Path: "(inline schema)", Message: "schema is empty"}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &SchemaLoadError{Path: "(inline schema)", Message: "schema does not compile", Cause: err}
	}
	return &Schema{schema: s}, nil
}

// Validate checks a decoded document (maps, slices, structs) against the schema
func (s *Schema) Validate(doc any) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	return toValidationError(result)
}

// ValidateValue compiles raw and validates doc against it
func ValidateValue(raw json.RawMessage, doc any) error {
	s, err := Compile(raw)
	if err != nil {
		return err
	}
	return s.Validate(doc)
}

// ValidateJSON validates a JSON file against a JSON Schema file
func ValidateJSON(schemaPath, jsonPath string) error {
	schemaAbsPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}

	jsonAbsPath, err := filepath.Abs(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to resolve JSON path: %w", err)
	}

	if _, err := os.Stat(schemaAbsPath); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", schemaAbsPath)
	}

	if _, err := os.Stat(jsonAbsPath); os.IsNotExist(err) {
		return fmt.Errorf("JSON file not found: %s", jsonAbsPath)
	}

	schemaLoader := gojsonschema.NewReferenceLoader("file://" + schemaAbsPath)
	documentLoader := gojsonschema.NewReferenceLoader("file://" + jsonAbsPath)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaAbsPath,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return toValidationError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
		})
	}
	return validationErr
}

// fieldOf returns the dotted path a result error applies to. Missing
// required properties are reported against the property itself rather than
// its parent object.
func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == RootField {
		field = ""
	}
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok && prop != "" {
			if field == "" {
				return prop
			}
			return field + "." + prop
		}
	}
	if field == "" {
		return RootField
	}
	return field
}
