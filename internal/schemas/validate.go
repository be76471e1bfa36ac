// Package schemas provides JSON Schema validation of model output for extracted contract data.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed extracted_data.schema.json
var extractedDataSchema string

// RootField is the field name reported for errors that apply to the whole document.
const RootField = "(root)"

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// TopLevel returns the top-level property the error belongs to ("parties" for "parties.0.name").
func (f FieldError) TopLevel() string {
	if i := strings.IndexByte(f.Field, '.'); i >= 0 {
		return f.Field[:i]
	}
	return f.Field
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

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// HasRootError reports whether any error applies to the document as a whole.
func (ve *ValidationError) HasRootError() bool {
	for _, e := range ve.Errors {
		if e.Field == RootField {
			return true
		}
	}
	return false
}

var (
	compiledOnce sync.Once
	compiled     *gojsonschema.Schema
	compileErr   error
)

func extractedData() (*gojsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiled, compileErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(extractedDataSchema))
	})
	return compiled, compileErr
}

// ValidateExtractedData validates model JSON output against the embedded ExtractedData schema.
// Malformed JSON yields a SchemaLoadError; schema violations yield a *ValidationError.
func ValidateExtractedData(jsonContent string) error {
	schema, err := extractedData()
	if err != nil {
		return &SchemaLoadError{Path: "extracted_data.schema.json", Message: "schema failed to compile", Cause: err}
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return &SchemaLoadError{
			Path:    "(document)",
			Message: "document could not be parsed",
			Cause:   err,
		}
	}
	return buildValidationError(result)
}

func buildValidationError(result *gojsonschema.Result) error {
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

// fieldOf attributes "required" errors to the missing property rather than its parent.
func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == "" {
		field = RootField
	}
	if desc.Type() != "required" {
		return field
	}
	prop, ok := desc.Details()["property"].(string)
	if !ok || prop == "" {
		return field
	}
	if field == RootField {
		return prop
	}
	return field + "." + prop
}
