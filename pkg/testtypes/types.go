// Package testtypes validates the type-specific payload ("type data") attached to a test item.
//
// Each test item carries a TestType tag and a free-form payload whose shape depends on that tag.
// A Validator per tag checks the payload in two phases: a structural pass driven by a Schema
// (types, required fields, bounds, per-field rules) and a semantic pass for rules that span
// fields or sequences (Gherkin step ordering, duplicate selectors). The Factory dispatches a
// (TestType, payload) pair to the right validator.
package testtypes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TestType classifies the shape of a test item's type data
type TestType string

const (
	TestTypeGeneric TestType = "generic"
	TestTypeBDD     TestType = "bdd"
	TestTypeManual  TestType = "manual"
)

// maxSuggestionDistance bounds how far a typo may be from a known tag to be suggested
const maxSuggestionDistance = 2

// Default returns the type used when a caller does not specify one
func Default() TestType {
	return TestTypeGeneric
}

// All returns every supported type in a fixed order
func All() []TestType {
	return []TestType{TestTypeGeneric, TestTypeBDD, TestTypeManual}
}

// String implements fmt.Stringer
func (t TestType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the supported tags
func (t TestType) IsValid() bool {
	switch t {
	case TestTypeGeneric, TestTypeBDD, TestTypeManual:
		return true
	}
	return false
}

// ParseTestType converts a case-insensitive string into a TestType.
// Unknown values are rejected, never coerced.
func ParseTestType(s string) (TestType, error) {
	t := TestType(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t, nil
	}
	return "", unsupportedTypeError(s)
}

// MustParseTestType is like ParseTestType but panics on unknown values
func MustParseTestType(s string) TestType {
	t, err := ParseTestType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// UnmarshalJSON parses a JSON string through ParseTestType
func (t *TestType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("test type must be a string: %w", err)
	}
	parsed, err := ParseTestType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalText parses text (YAML scalars, query params) through ParseTestType
func (t *TestType) UnmarshalText(text []byte) error {
	parsed, err := ParseTestType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// supportedList renders All() as "generic, bdd, manual"
func supportedList() string {
	names := make([]string, 0, len(All()))
	for _, t := range All() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// suggestType returns the closest supported tag within maxSuggestionDistance, if any
func suggestType(s string) (TestType, bool) {
	input := strings.ToLower(strings.TrimSpace(s))
	if input == "" {
		return "", false
	}

	best := TestType("")
	bestDist := maxSuggestionDistance + 1
	for _, t := range All() {
		d := levenshtein.ComputeDistance(input, string(t))
		if d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, bestDist <= maxSuggestionDistance
}

func unsupportedTypeError(s string) *ValidationError {
	msg := fmt.Sprintf("Unsupported test type: %q. Supported types: %s", s, supportedList())
	if hint, ok := suggestType(s); ok {
		msg += fmt.Sprintf(" (did you mean %q?)", hint)
	}
	return &ValidationError{
		Message: msg,
		Errors:  map[string]string{},
		cause:   ErrUnsupportedType,
	}
}
