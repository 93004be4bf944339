package testtypes

import (
	"strings"

	"github.com/rs/zerolog"
)

const maxBDDBlocks = 100

// BDDValidator validates Gherkin-style feature/scenario payloads
type BDDValidator struct {
	schema *Schema
	logger zerolog.Logger
}

// NewBDDValidator creates a BDD validator
func NewBDDValidator(logger zerolog.Logger) *BDDValidator {
	return &BDDValidator{
		schema: bddSchema(),
		logger: componentLogger(logger, TestTypeBDD),
	}
}

func bddSchema() *Schema {
	name := func(field, label string) Field {
		return Field{
			Name:        field,
			Kind:        KindString,
			Required:    true,
			Description: label,
			MinLen:      1,
			MaxLen:      200,
			TooSmall:    label + " cannot be empty",
			TooLarge:    label + " cannot exceed 200 characters",
			Rules:       []Rule{alphanumeric(label + " must contain at least one alphanumeric character")},
		}
	}

	fields := append(baseFields(TestTypeBDD),
		name("feature_name", "Feature name"),
		name("scenario_name", "Scenario name"),
		Field{
			Name:        "bdd_blocks",
			Kind:        KindObjectList,
			Required:    true,
			Description: "Ordered Given/When/Then blocks",
			MinItems:    1,
			MaxItems:    maxBDDBlocks,
			Fields: []Field{
				{Name: "type", Kind: KindEnum, Required: true, Enum: BDDBlockTypes},
				{
					Name:     "content",
					Kind:     KindString,
					Required: true,
					MinLen:   1,
					MaxLen:   500,
					TooSmall: "BDD block content cannot be empty",
					TooLarge: "BDD block content cannot exceed 500 characters",
				},
				{Name: "keyword", Kind: KindString, MaxLen: 50},
			},
		},
		Field{
			Name:        "tags",
			Kind:        KindStringList,
			Description: "Free-form tags",
			Item:        &Field{Kind: KindString, MaxLen: 100},
			Default:     func() any { return []string{} },
		},
		Field{
			Name:        "gherkin_syntax_version",
			Kind:        KindString,
			Description: "Gherkin dialect version",
			MaxLen:      20,
			Default:     func() any { return DefaultGherkinVersion },
		},
	)

	return &Schema{Type: TestTypeBDD, Fields: fields, build: buildBDD}
}

// Type returns TestTypeBDD
func (v *BDDValidator) Type() TestType { return TestTypeBDD }

// Schema returns the BDD schema
func (v *BDDValidator) Schema() *Schema { return v.schema }

// Validate returns the normalized BDD payload
func (v *BDDValidator) Validate(raw map[string]any) (map[string]any, error) {
	d, err := v.Parse(raw)
	if err != nil {
		return nil, err
	}
	return d.ToMap(), nil
}

// Parse validates raw and returns a *BDDTypeData
func (v *BDDValidator) Parse(raw map[string]any) (TypeData, error) {
	d, err := v.structural(raw)
	if err != nil {
		return nil, err
	}
	if err := v.semantic(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (v *BDDValidator) structural(raw map[string]any) (*BDDTypeData, error) {
	td, err := runStructural(v.schema, raw)
	if err != nil {
		return nil, err
	}
	d, ok := td.(*BDDTypeData)
	if !ok {
		return nil, wrapUnexpected(TestTypeBDD, mismatch(TestTypeBDD, td))
	}
	if d.GherkinSyntaxVersion == "" {
		d.GherkinSyntaxVersion = DefaultGherkinVersion
	}
	return d, nil
}

func (v *BDDValidator) semantic(d *BDDTypeData) error {
	if strings.EqualFold(d.FeatureName, d.ScenarioName) {
		return newSemanticError("Feature name and scenario name must be different")
	}

	if err := checkRequiredSteps(d.BDDBlocks); err != nil {
		return err
	}
	if err := checkStepOrder(d.BDDBlocks); err != nil {
		return err
	}

	v.logger.Debug().
		Str("feature", d.FeatureName).
		Int("blocks", len(d.BDDBlocks)).
		Msg("bdd type data validated")
	return nil
}

func checkRequiredSteps(blocks []BDDBlock) error {
	present := make(map[string]bool, 3)
	for _, b := range blocks {
		present[b.Type] = true
	}
	for _, required := range []string{BlockGiven, BlockWhen, BlockThen} {
		if !present[required] {
			return newSemanticError("BDD scenario must contain at least one '%s' step", defaultKeyword(required))
		}
	}
	return nil
}

// checkStepOrder is a single forward scan: a When needs an earlier Given and a Then needs an
// earlier When. Interleavings such as Given, When, Given, Then are accepted.
func checkStepOrder(blocks []BDDBlock) error {
	lastGiven, lastWhen := -1, -1
	for i, b := range blocks {
		switch b.Type {
		case BlockGiven:
			lastGiven = i
		case BlockWhen:
			if lastGiven < 0 {
				return newSemanticError("Invalid BDD structure: 'When' step found before any 'Given' step (block %d)", i+1)
			}
			lastWhen = i
		case BlockThen:
			if lastWhen < 0 {
				return newSemanticError("Invalid BDD structure: 'Then' step found before any 'When' step (block %d)", i+1)
			}
		}
	}
	return nil
}
