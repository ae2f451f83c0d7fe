// Package validator provides a thin wrapper around the go-playground/validator library,
// enabling declarative struct validation with standardized error formatting.
//
// Besides the built-in tags it registers:
//
//   - nemaddress: a NEM account address (40 base32 characters once dashes are
//     removed and the value is upper-cased).
package validator

import (
	"errors"
	"fmt"
	"strings"

	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is returned as the first error in a multi-error chain when validation fails.
var ErrValidationFailed = errors.New("struct validation failed")

var validator *gvalidator.Validate

// errStringFormat is the template used to describe individual validation errors.
//
// Example: "'Host': value '' does not meet the requirements for the 'required' validation"
const errStringFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

const (
	nemAddressTag    = "nemaddress"
	nemAddressLength = 40
)

func init() {
	validator = gvalidator.New(gvalidator.WithRequiredStructEnabled())
	if err := validator.RegisterValidation(nemAddressTag, validateNEMAddress); err != nil {
		panic(err)
	}
}

// IsNEMAddress reports whether s is a well-formed NEM address. Dashes and
// letter case are ignored.
func IsNEMAddress(s string) bool {
	s = strings.ToUpper(strings.ReplaceAll(s, "-", ""))
	if len(s) != nemAddressLength {
		return false
	}

	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '2' && r <= '7') {
			return false
		}
	}
	return true
}

func validateNEMAddress(fl gvalidator.FieldLevel) bool {
	return IsNEMAddress(fl.Field().String())
}

// formatError transforms a raw validator error into a multi-error chain rooted at
// ErrValidationFailed. Errors that are not validation errors are returned unchanged.
func formatError(err error) error {
	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, validationErr := range validationErrors {
		errs = append(errs, fmt.Errorf(errStringFormat,
			validationErr.Field(),
			validationErr.Value(),
			validationErr.Tag(),
		))
	}

	return errors.Join(errs...)
}

// Validate checks if the given struct satisfies its validation tags.
//
// It returns nil if all fields pass validation. Otherwise the returned error
// matches ErrValidationFailed with errors.Is and lists every failing field.
func Validate(v any) error {
	if err := validator.Struct(v); err != nil {
		return formatError(err)
	}

	return nil
}
