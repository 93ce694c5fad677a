// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema that can be shared between goroutines.
type Schema struct {
	once   sync.Once
	source string
	schema *gojsonschema.Schema
	err    error
}

// NewSchema defers compilation to the first Validate call.
func NewSchema(source string) *Schema {
	return &Schema{source: source}
}

func (s *Schema) compile() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.schema, s.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.source))
	})
	return s.schema, s.err
}

// Validate checks doc (any value encodable as JSON) against the schema. Errors are
// sorted by field so results are stable.
func (s *Schema) Validate(doc interface{}) (*ValidationResult, error) {
	schema, err := s.compile()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    schemaErrorCode(e.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}

func schemaErrorCode(t string) string {
	switch t {
	case "required":
		return "MISSING_REQUIRED"
	case "invalid_type":
		return "INVALID_TYPE"
	case "enum", "pattern", "format", "string_gte", "string_lte":
		return "INVALID_FORMAT"
	case "number_gte", "number_lte", "number_gt", "number_lt":
		return "OUT_OF_RANGE"
	case "array_max_items", "array_min_items", "unique":
		return "INVALID_LENGTH"
	default:
		return "SCHEMA_VIOLATION"
	}
}
