package testtypes

import (
	"github.com/rs/zerolog"
)

// Execution time bounds, in minutes
const (
	minExecutionMinutes  = 1
	maxExecutionMinutes  = 480
	longExecutionMinutes = 240
)

// ManualValidator validates payloads for tests run by a person
type ManualValidator struct {
	schema *Schema
	logger zerolog.Logger
}

// NewManualValidator creates a manual validator
func NewManualValidator(logger zerolog.Logger) *ManualValidator {
	return &ManualValidator{
		schema: manualSchema(),
		logger: componentLogger(logger, TestTypeManual),
	}
}

func manualSchema() *Schema {
	fields := append(baseFields(TestTypeManual),
		Field{
			Name:        "manual_notes",
			Kind:        KindString,
			Required:    true,
			Description: "Step-by-step instructions for the tester",
			MinLen:      1,
			MaxLen:      5000,
			TooSmall:    "Manual notes cannot be empty",
			TooLarge:    "Manual notes cannot exceed 5000 characters",
			Rules: []Rule{
				alphanumeric("Manual notes must contain meaningful content"),
				minWords(3, "Manual notes must contain at least 3 words"),
			},
		},
		Field{
			Name:        "expected_outcomes",
			Kind:        KindString,
			Required:    true,
			Description: "What the tester should observe",
			MinLen:      1,
			MaxLen:      2000,
			TooSmall:    "Expected outcomes cannot be empty",
			TooLarge:    "Expected outcomes cannot exceed 2000 characters",
			Rules:       []Rule{minWords(2, "Expected outcomes must contain at least 2 words")},
		},
		Field{
			Name:        "screenshot_urls",
			Kind:        KindStringList,
			Description: "Reference screenshots",
			MaxItems:    10,
			TooMany:     "Cannot have more than 10 screenshot URLs",
			Item: &Field{
				Kind:     KindString,
				MinLen:   1,
				MaxLen:   2000,
				TooSmall: "Screenshot URL cannot be empty",
				TooLarge: "Screenshot URL cannot exceed 2000 characters",
				Rules:    []Rule{matches(urlPattern, "Invalid screenshot URL format: %s")},
			},
			Rules:   []Rule{unique(true, "Duplicate screenshot URLs are not allowed")},
			Default: func() any { return []string{} },
		},
		Field{
			Name:        "execution_time_estimate",
			Kind:        KindInt,
			Description: "Estimated execution time in minutes",
			Min:         bound(minExecutionMinutes),
			Max:         bound(maxExecutionMinutes),
			TooSmall:    "Execution time estimate must be at least 1 minute",
			TooLarge:    "Execution time estimate cannot exceed 8 hours (480 minutes)",
		},
		Field{
			Name:        "prerequisites",
			Kind:        KindStringList,
			Description: "Conditions that must hold before the test starts",
			MaxItems:    20,
			TooMany:     "Cannot have more than 20 prerequisites",
			Item: &Field{
				Kind:     KindString,
				MinLen:   1,
				MaxLen:   200,
				TooSmall: "Prerequisite cannot be empty",
				TooLarge: "Prerequisite cannot exceed 200 characters",
				Rules:    []Rule{alphanumeric("Prerequisite must contain meaningful content")},
			},
			Rules:   []Rule{unique(false, "Duplicate prerequisites are not allowed")},
			Default: func() any { return []string{} },
		},
		Field{
			Name:        "test_data_requirements",
			Kind:        KindString,
			Description: "Data the tester needs prepared",
			MinLen:      1,
			MaxLen:      1000,
			TooSmall:    "Test data requirements cannot be empty if provided",
			TooLarge:    "Test data requirements cannot exceed 1000 characters",
		},
	)

	return &Schema{Type: TestTypeManual, Fields: fields, build: buildManual}
}

// Type returns TestTypeManual
func (v *ManualValidator) Type() TestType { return TestTypeManual }

// Schema returns the manual schema
func (v *ManualValidator) Schema() *Schema { return v.schema }

// Validate returns the normalized manual payload
func (v *ManualValidator) Validate(raw map[string]any) (map[string]any, error) {
	d, err := v.Parse(raw)
	if err != nil {
		return nil, err
	}
	return d.ToMap(), nil
}

// Parse validates raw and returns a *ManualTypeData
func (v *ManualValidator) Parse(raw map[string]any) (TypeData, error) {
	d, err := v.structural(raw)
	if err != nil {
		return nil, err
	}
	if err := v.semantic(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (v *ManualValidator) structural(raw map[string]any) (*ManualTypeData, error) {
	td, err := runStructural(v.schema, raw)
	if err != nil {
		return nil, err
	}
	d, ok := td.(*ManualTypeData)
	if !ok {
		return nil, wrapUnexpected(TestTypeManual, mismatch(TestTypeManual, td))
	}
	return d, nil
}

func (v *ManualValidator) semantic(d *ManualTypeData) error {
	if d.ExecutionTimeEstimate != nil && *d.ExecutionTimeEstimate > longExecutionMinutes {
		v.logger.Warn().
			Str("field", "execution_time_estimate").
			Int("minutes", *d.ExecutionTimeEstimate).
			Msg("manual test estimated to take more than 4 hours, consider splitting it")
	}
	return nil
}
