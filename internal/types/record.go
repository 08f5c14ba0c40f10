// Package types provides type definitions for structured data used throughout the codex pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Evidence is a verbatim quote from the source document cited for a field
type Evidence struct {
	Quote     string `json:"quote"`
	FieldPath string `json:"field_path"`
	Page      *int   `json:"page,omitempty"`
}

// Flag marks a record field that needs human attention
type Flag struct {
	Path     string   `json:"path"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// StructuredRecord is the schema-conformant output of extraction
type StructuredRecord struct {
	Fields        map[string]any     `json:"fields"`
	Evidence      []Evidence         `json:"evidence"`
	Confidence    map[string]float64 `json:"confidence"`
	MissingFields []Flag             `json:"missing_fields"`
}

// NewStructuredRecord returns a record with all collections initialized
func NewStructuredRecord(fields map[string]any) *StructuredRecord {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &StructuredRecord{
		Fields:        fields,
		Evidence:      []Evidence{},
		Confidence:    make(map[string]float64),
		MissingFields: []Flag{},
	}
}

// HasFlag reports whether a flag already exists for path
func (r *StructuredRecord) HasFlag(path string) bool {
	for _, f := range r.MissingFields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// AddFlag appends a flag unless one already exists for the same path.
// It returns true when the flag was added.
func (r *StructuredRecord) AddFlag(flag Flag) bool {
	if r.HasFlag(flag.Path) {
		return false
	}
	r.MissingFields = append(r.MissingFields, flag)
	return true
}
