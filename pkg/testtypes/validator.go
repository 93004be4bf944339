package testtypes

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Validator checks one test type's payload.
//
// Validate runs the structural pass (schema interpreter, every field error collected) and then
// the semantic pass (cross-field rules, first violation wins). It returns the normalized mapping.
type Validator interface {
	Type() TestType
	Schema() *Schema
	Validate(raw map[string]any) (map[string]any, error)
	Parse(raw map[string]any) (TypeData, error)
}

// NewValidator constructs the validator for t.
// The switch must cover every member of All(); factory tests enforce it.
func NewValidator(t TestType, logger zerolog.Logger) (Validator, error) {
	switch t {
	case TestTypeGeneric:
		return NewGenericValidator(logger), nil
	case TestTypeBDD:
		return NewBDDValidator(logger), nil
	case TestTypeManual:
		return NewManualValidator(logger), nil
	}
	return nil, unsupportedTypeError(string(t))
}

// baseFields are present on every schema
func baseFields(t TestType) []Field {
	return []Field{
		{
			Name:        "type",
			Kind:        KindEnum,
			Enum:        []string{string(t)},
			Description: "Test type tag, must match the validator",
			Default:     func() any { return string(t) },
		},
		{
			Name:        "created_at",
			Kind:        KindTime,
			Description: "When the payload was constructed",
			Default:     func() any { return time.Now().UTC() },
		},
	}
}

// runStructural is the shared first phase
func runStructural(s *Schema, raw map[string]any) (TypeData, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	return s.Decode(raw)
}

func componentLogger(logger zerolog.Logger, t TestType) zerolog.Logger {
	return logger.With().Str("component", "testtypes").Str("test_type", string(t)).Logger()
}

// mismatch is returned when a builder hands back the wrong concrete type
func mismatch(t TestType, d TypeData) error {
	return fmt.Errorf("schema for %s produced %T", t, d)
}
