// Package validator wraps go-playground/validator behind a small API
// that yields JSON-friendly field errors.
package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates structs and single values against `validate`
// tags.
type Validator struct {
	cli *validator.Validate
}

// A ValidationError describes one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v *Validator) formatError(err error) []ValidationError {
	errs := make([]ValidationError, 0)
	for _, fe := range err.(validator.ValidationErrors) {
		msg := fmt.Sprintf("failed on the %q rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the %q rule (param %s)", fe.Tag(), fe.Param())
		}
		errs = append(errs, ValidationError{
			Field:   fe.StructField(),
			Message: msg,
		})
	}
	return errs
}

// ValidateStruct validates s against its field tags and returns one
// error per failed field, nil when s is valid.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	if err := v.cli.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Validate checks a single value against tag, e.g. "required,url".
func (v *Validator) Validate(value interface{}, tag string) []ValidationError {
	if err := v.cli.Var(value, tag); err != nil {
		return v.formatError(err)
	}
	return nil
}

// New returns a ready-to-use Validator.
func New() *Validator {
	return &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
	}
}
