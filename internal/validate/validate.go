// Package validate checks decoded JSON response bodies against named
// schema documents and reports every violation found, not just the
// first.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"apicheck/internal/schema"
)

// ErrValidationFailed is the sentinel wrapped by ValidationError.
var ErrValidationFailed = errors.New("response validation failed")

// Violation is a single schema violation.
type Violation struct {
	// Path locates the offending value inside the body (dotted field
	// path, "(root)" for the document itself).
	Path string `json:"path"`
	// Constraint names the schema keyword that was not satisfied,
	// e.g. "required", "invalid_type".
	Constraint string `json:"constraint"`
	// Value is the offending value's stringified form.
	Value string `json:"value"`
	// Detail is the human-readable description from the validator.
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Detail, v.Constraint)
}

// Outcome is the result of validating one body against one schema.
type Outcome struct {
	SchemaName string      `json:"schema"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// ValidationError carries a failed Outcome across an error boundary.
type ValidationError struct {
	Outcome Outcome
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Outcome.Violations))
	for _, v := range e.Outcome.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("schema %s: %d violation(s): %s",
		e.Outcome.SchemaName, len(e.Outcome.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// Validator validates bodies against documents resolved through a
// schema registry.
type Validator struct {
	registry *schema.Registry
}

// New creates a Validator backed by reg.
func New(reg *schema.Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate checks body against the schema stored under schemaName.
// The body is never mutated and the same body/schema pair always
// yields the same outcome. Schema resolution errors propagate as-is;
// a body that fails the schema yields an Invalid outcome together
// with a *ValidationError.
func (v *Validator) Validate(body []byte, schemaName string) (Outcome, error) {
	doc, err := v.registry.Load(schemaName)
	if err != nil {
		return Outcome{SchemaName: schemaName}, err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(doc.Raw),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return Outcome{SchemaName: schemaName}, fmt.Errorf("validating against %s: %w", schemaName, err)
	}

	outcome := Outcome{SchemaName: schemaName, Valid: result.Valid()}
	if outcome.Valid {
		return outcome, nil
	}

	for _, re := range result.Errors() {
		outcome.Violations = append(outcome.Violations, Violation{
			Path:       re.Field(),
			Constraint: re.Type(),
			Value:      fmt.Sprintf("%v", re.Value()),
			Detail:     re.Description(),
		})
	}

	return outcome, &ValidationError{Outcome: outcome}
}
