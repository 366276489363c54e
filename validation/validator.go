package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/jobrunner/errors"
)

// FieldError is one failed check, keyed by document path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates checks that tags cannot express, such as rules
// spanning several fields.
type Validator struct {
	errors []FieldError
}

func New() *Validator {
	return &Validator{}
}

// Check records message against field unless ok holds.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.errors = append(v.errors, FieldError{Field: field, Message: message})
	}
	return v
}

// Required fails on blank strings.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// OneOf fails when value is set and not among allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.Check(value == "" || slices.Contains(allowed, value), field,
		"must be one of: "+strings.Join(allowed, ", "))
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

func (v *Validator) Errors() []FieldError { return v.errors }

// Err returns the collected failures as one INVALID_INPUT error, nil when
// every check passed.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return fieldsError(v.errors)
}

// fieldsError joins field failures into a single message and keeps them
// individually under the "fields" detail.
func fieldsError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", fields)
}
