package testtypes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedType is the cause of a ValidationError for an unknown test type tag
var ErrUnsupportedType = errors.New("unsupported test type")

// ValidationError is the only error kind returned by this package.
// Structural failures fill Errors with one entry per bad field path;
// semantic failures carry a Message and leave Errors empty.
type ValidationError struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`

	cause error
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause (ErrUnsupportedType, a recovered panic, ...)
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// IsStructural reports whether the error came from the schema pass
func (e *ValidationError) IsStructural() bool {
	return len(e.Errors) > 0
}

// Fields returns the failing field paths in sorted order
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// AsValidationError unwraps err into a *ValidationError if it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func newSemanticError(format string, args ...any) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
		Errors:  map[string]string{},
	}
}

func newStructuralError(t TestType, fieldErrors map[string]string) *ValidationError {
	ve := &ValidationError{Errors: fieldErrors}

	parts := make([]string, 0, len(fieldErrors))
	for _, f := range ve.Fields() {
		parts = append(parts, f+": "+fieldErrors[f])
	}
	ve.Message = fmt.Sprintf("Invalid %s test data: %s", t, strings.Join(parts, "; "))
	return ve
}

func wrapUnexpected(t TestType, err error) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("Unexpected error validating %s test data: %v", t, err),
		Errors:  map[string]string{},
		cause:   err,
	}
}
