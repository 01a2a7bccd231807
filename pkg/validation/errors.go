package validation

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an input was rejected
type ErrorKind string

const (
	KindMissingField       ErrorKind = "missing_field"
	KindInvalidArgument    ErrorKind = "invalid_argument"
	KindInvalidControlType ErrorKind = "invalid_control_type"
	KindInvalidAuthType    ErrorKind = "invalid_auth_type"
)

// ValidationError is returned for malformed input, always before any request
// is sent. Target-side failures are never reported this way.
type ValidationError struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

func newValidationError(kind ErrorKind, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsValidationError unwraps err to a *ValidationError if it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// IsKind reports whether err is a validation error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	verr, ok := AsValidationError(err)
	return ok && verr.Kind == kind
}
