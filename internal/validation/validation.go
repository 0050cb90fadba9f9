// Package validation wraps go-playground/validator so that request DTOs are
// checked the same way by the HTTP router and the gRPC handler, and failures
// are reported per JSON field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is wrapped by every error returned from Validator.Struct
// that describes a rejected field.
var ErrValidation = errors.New("validation failed")

// FieldsError carries the reason each rejected field failed, keyed by JSON name.
type FieldsError struct {
	Details map[string]string
}

func (e *FieldsError) Error() string {
	return ErrValidation.Error()
}

func (e *FieldsError) Unwrap() error {
	return ErrValidation
}

// Validator checks request structs.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator that reports fields by their json tag.
func New() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	return &Validator{validate: validate}
}

// Struct validates s and returns a *FieldsError when a field is rejected.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("in internal/validation/validation.go/Struct(): error while `v.validate.Struct()` calling: %w", err)
	}

	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = describe(fieldErr)
	}

	return &FieldsError{Details: details}
}

// Details extracts the per-field reasons from err, if it is a validation failure.
func Details(err error) (map[string]string, bool) {
	var fieldsErr *FieldsError
	if !errors.As(err, &fieldsErr) {
		return nil, false
	}

	return fieldsErr.Details, true
}

func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fieldErr.Param() == "1" {
			return "must not be empty"
		}
		return "must be at least " + fieldErr.Param() + " characters long"
	case "max":
		return "must be at most " + fieldErr.Param() + " characters long"
	default:
		return "failed the " + fieldErr.Tag() + " check"
	}
}
