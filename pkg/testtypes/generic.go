package testtypes

import (
	"regexp"
	"sort"

	"github.com/rs/zerolog"
)

const lowConfidenceThreshold = 0.3

// selectorShapes are loose patterns for "looks like a selector". A miss only logs a warning.
var selectorShapes = []*regexp.Regexp{
	regexp.MustCompile(`^#[\w-]+`),
	regexp.MustCompile(`^\.[\w-]+`),
	regexp.MustCompile(`\[[^\]]+\]`),
	regexp.MustCompile(`(?i)^(?:div|span|input|button|a|form|select|textarea|label|img|ul|li|table|tr|td|nav|h[1-6]|p)\b`),
	regexp.MustCompile(`data-testid`),
	regexp.MustCompile(`^(?://|\(//|xpath=)`),
}

// GenericValidator validates AI-assisted free-form test payloads
type GenericValidator struct {
	schema *Schema
	logger zerolog.Logger
}

// NewGenericValidator creates a generic validator
func NewGenericValidator(logger zerolog.Logger) *GenericValidator {
	return &GenericValidator{
		schema: genericSchema(),
		logger: componentLogger(logger, TestTypeGeneric),
	}
}

func genericSchema() *Schema {
	fields := append(baseFields(TestTypeGeneric),
		Field{
			Name:        "ai_confidence_score",
			Kind:        KindFloat,
			Description: "Confidence of the AI that generated the test",
			Min:         bound(0),
			Max:         bound(1),
			TooSmall:    "AI confidence score must be between 0.0 and 1.0",
			TooLarge:    "AI confidence score must be between 0.0 and 1.0",
		},
		Field{
			Name:        "natural_language_steps",
			Kind:        KindStringList,
			Description: "Plain-language test steps",
			MaxItems:    50,
			TooMany:     "Cannot have more than 50 natural language steps",
			Item: &Field{
				Kind:     KindString,
				MinLen:   1,
				MaxLen:   500,
				TooSmall: "Natural language step cannot be empty",
				TooLarge: "Natural language step cannot exceed 500 characters",
				Rules:    []Rule{minWords(2, "Natural language step must contain at least 2 words")},
			},
			Rules:   []Rule{unique(true, "Duplicate natural language steps are not allowed")},
			Default: func() any { return []string{} },
		},
		Field{
			Name:        "selector_hints",
			Kind:        KindStringMap,
			Description: "Element name to CSS/XPath selector",
			MaxItems:    30,
			TooMany:     "Cannot have more than 30 selector hints",
			Key: &Field{
				Kind:     KindString,
				Verbatim: true,
				MinLen:   1,
				MaxLen:   100,
				TooSmall: "Selector hint name cannot be empty",
				TooLarge: "Selector hint name cannot exceed 100 characters",
				Rules: []Rule{matches(selectorKeyPattern,
					"Invalid selector hint name %q: only letters, digits, underscores and hyphens are allowed")},
			},
			Item: &Field{
				Kind:     KindString,
				MinLen:   1,
				MaxLen:   500,
				TooSmall: "Selector value cannot be empty",
				TooLarge: "Selector value cannot exceed 500 characters",
				Rules:    []Rule{noForbiddenChars(`Selector contains forbidden characters (< > { } | \)`)},
			},
			Default: func() any { return map[string]string{} },
		},
		Field{
			Name:        "automation_priority",
			Kind:        KindEnum,
			Description: "How urgently the test should be automated",
			Enum:        []string{PriorityHigh, PriorityMedium, PriorityLow},
		},
		Field{
			Name:        "complexity_score",
			Kind:        KindFloat,
			Description: "Estimated complexity",
			Min:         bound(0),
			Max:         bound(1),
			TooSmall:    "Complexity score must be between 0.0 and 1.0",
			TooLarge:    "Complexity score must be between 0.0 and 1.0",
		},
	)

	return &Schema{Type: TestTypeGeneric, Fields: fields, build: buildGeneric}
}

// Type returns TestTypeGeneric
func (v *GenericValidator) Type() TestType { return TestTypeGeneric }

// Schema returns the generic schema
func (v *GenericValidator) Schema() *Schema { return v.schema }

// Validate returns the normalized generic payload
func (v *GenericValidator) Validate(raw map[string]any) (map[string]any, error) {
	d, err := v.Parse(raw)
	if err != nil {
		return nil, err
	}
	return d.ToMap(), nil
}

// Parse validates raw and returns a *GenericTypeData
func (v *GenericValidator) Parse(raw map[string]any) (TypeData, error) {
	d, err := v.structural(raw)
	if err != nil {
		return nil, err
	}
	if err := v.semantic(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (v *GenericValidator) structural(raw map[string]any) (*GenericTypeData, error) {
	td, err := runStructural(v.schema, raw)
	if err != nil {
		return nil, err
	}
	d, ok := td.(*GenericTypeData)
	if !ok {
		return nil, wrapUnexpected(TestTypeGeneric, mismatch(TestTypeGeneric, td))
	}
	return d, nil
}

func (v *GenericValidator) semantic(d *GenericTypeData) error {
	names := make([]string, 0, len(d.SelectorHints))
	for name := range d.SelectorHints {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	for _, name := range names {
		selector := d.SelectorHints[name]
		if other, dup := seen[selector]; dup {
			return newSemanticError("Duplicate selector values are not allowed (%q and %q share %q)", other, name, selector)
		}
		seen[selector] = name

		if !LooksLikeSelector(selector) {
			v.logger.Warn().
				Str("field", "selector_hints").
				Str("element", name).
				Str("selector", selector).
				Msg("selector does not match any recognized selector pattern")
		}
	}

	if d.AIConfidenceScore != nil && *d.AIConfidenceScore < lowConfidenceThreshold {
		v.logger.Warn().
			Str("field", "ai_confidence_score").
			Float64("score", *d.AIConfidenceScore).
			Msg("low AI confidence score, manual review recommended")
	}
	return nil
}

// LooksLikeSelector is a best-effort lint for CSS/XPath selector shapes
func LooksLikeSelector(s string) bool {
	for _, re := range selectorShapes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
