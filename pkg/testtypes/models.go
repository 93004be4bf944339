package testtypes

import (
	"strings"
	"time"
)

// TypeData is the typed form of a validated payload
type TypeData interface {
	TestType() TestType
	Timestamp() time.Time
	ToMap() map[string]any
}

// Base carries the fields every type-data record has
type Base struct {
	Type      TestType  `json:"type" yaml:"type"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// TestType returns the record's tag
func (b Base) TestType() TestType { return b.Type }

// Timestamp returns when the payload was constructed (not when it was persisted)
func (b Base) Timestamp() time.Time { return b.CreatedAt }

func (b Base) baseMap() map[string]any {
	return map[string]any{
		"type":       string(b.Type),
		"created_at": b.CreatedAt,
	}
}

// BDD block types
const (
	BlockGiven      = "given"
	BlockWhen       = "when"
	BlockThen       = "then"
	BlockAnd        = "and"
	BlockBut        = "but"
	BlockBackground = "background"
	BlockScenario   = "scenario"
)

// BDDBlockTypes lists the allowed block types in Gherkin order
var BDDBlockTypes = []string{
	BlockGiven, BlockWhen, BlockThen, BlockAnd, BlockBut, BlockBackground, BlockScenario,
}

// DefaultGherkinVersion is filled in when a BDD payload omits gherkin_syntax_version
const DefaultGherkinVersion = "1.0"

// BDDBlock is one Given/When/Then/... step
type BDDBlock struct {
	Type    string `json:"type" yaml:"type"`
	Content string `json:"content" yaml:"content"`
	Keyword string `json:"keyword" yaml:"keyword"`
}

// BDDTypeData is the payload of a behaviour-driven test
type BDDTypeData struct {
	Base
	FeatureName          string     `json:"feature_name" yaml:"feature_name"`
	ScenarioName         string     `json:"scenario_name" yaml:"scenario_name"`
	BDDBlocks            []BDDBlock `json:"bdd_blocks" yaml:"bdd_blocks"`
	Tags                 []string   `json:"tags" yaml:"tags"`
	GherkinSyntaxVersion string     `json:"gherkin_syntax_version" yaml:"gherkin_syntax_version"`
}

// ToMap returns the normalized mapping for persistence
func (d *BDDTypeData) ToMap() map[string]any {
	m := d.baseMap()

	blocks := make([]map[string]any, len(d.BDDBlocks))
	for i, b := range d.BDDBlocks {
		blocks[i] = map[string]any{
			"type":    b.Type,
			"content": b.Content,
			"keyword": b.Keyword,
		}
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	m["feature_name"] = d.FeatureName
	m["scenario_name"] = d.ScenarioName
	m["bdd_blocks"] = blocks
	m["tags"] = tags
	m["gherkin_syntax_version"] = d.GherkinSyntaxVersion
	return m
}

// ManualTypeData is the payload of a test executed by a person
type ManualTypeData struct {
	Base
	ManualNotes           string   `json:"manual_notes" yaml:"manual_notes"`
	ExpectedOutcomes      string   `json:"expected_outcomes" yaml:"expected_outcomes"`
	ScreenshotURLs        []string `json:"screenshot_urls" yaml:"screenshot_urls"`
	ExecutionTimeEstimate *int     `json:"execution_time_estimate,omitempty" yaml:"execution_time_estimate,omitempty"`
	Prerequisites         []string `json:"prerequisites" yaml:"prerequisites"`
	TestDataRequirements  *string  `json:"test_data_requirements,omitempty" yaml:"test_data_requirements,omitempty"`
}

// ToMap returns the normalized mapping for persistence
func (d *ManualTypeData) ToMap() map[string]any {
	m := d.baseMap()
	m["manual_notes"] = d.ManualNotes
	m["expected_outcomes"] = d.ExpectedOutcomes
	m["screenshot_urls"] = nonNil(d.ScreenshotURLs)
	m["prerequisites"] = nonNil(d.Prerequisites)
	m["execution_time_estimate"] = nil
	if d.ExecutionTimeEstimate != nil {
		m["execution_time_estimate"] = *d.ExecutionTimeEstimate
	}
	m["test_data_requirements"] = nil
	if d.TestDataRequirements != nil {
		m["test_data_requirements"] = *d.TestDataRequirements
	}
	return m
}

// Automation priorities for generic tests
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// GenericTypeData is the payload of an AI-assisted, free-form test
type GenericTypeData struct {
	Base
	AIConfidenceScore    *float64          `json:"ai_confidence_score,omitempty" yaml:"ai_confidence_score,omitempty"`
	NaturalLanguageSteps []string          `json:"natural_language_steps" yaml:"natural_language_steps"`
	SelectorHints        map[string]string `json:"selector_hints" yaml:"selector_hints"`
	AutomationPriority   *string           `json:"automation_priority,omitempty" yaml:"automation_priority,omitempty"`
	ComplexityScore      *float64          `json:"complexity_score,omitempty" yaml:"complexity_score,omitempty"`
}

// ToMap returns the normalized mapping for persistence
func (d *GenericTypeData) ToMap() map[string]any {
	m := d.baseMap()

	hints := d.SelectorHints
	if hints == nil {
		hints = map[string]string{}
	}
	m["natural_language_steps"] = nonNil(d.NaturalLanguageSteps)
	m["selector_hints"] = hints
	m["ai_confidence_score"] = nil
	if d.AIConfidenceScore != nil {
		m["ai_confidence_score"] = *d.AIConfidenceScore
	}
	m["automation_priority"] = nil
	if d.AutomationPriority != nil {
		m["automation_priority"] = *d.AutomationPriority
	}
	m["complexity_score"] = nil
	if d.ComplexityScore != nil {
		m["complexity_score"] = *d.ComplexityScore
	}
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Builders turn a structurally valid, normalized map into the typed record.
// They only see maps produced by Schema.structural, so the type assertions hold.

func buildBase(m map[string]any) Base {
	return Base{
		Type:      TestType(m["type"].(string)),
		CreatedAt: m["created_at"].(time.Time),
	}
}

func buildBDD(m map[string]any) TypeData {
	d := &BDDTypeData{
		Base:                 buildBase(m),
		FeatureName:          m["feature_name"].(string),
		ScenarioName:         m["scenario_name"].(string),
		Tags:                 stringsOf(m["tags"]),
		GherkinSyntaxVersion: m["gherkin_syntax_version"].(string),
	}
	for _, raw := range m["bdd_blocks"].([]map[string]any) {
		b := BDDBlock{
			Type:    raw["type"].(string),
			Content: raw["content"].(string),
		}
		if kw, ok := raw["keyword"].(string); ok && kw != "" {
			b.Keyword = kw
		} else {
			b.Keyword = defaultKeyword(b.Type)
		}
		d.BDDBlocks = append(d.BDDBlocks, b)
	}
	return d
}

func buildManual(m map[string]any) TypeData {
	d := &ManualTypeData{
		Base:             buildBase(m),
		ManualNotes:      m["manual_notes"].(string),
		ExpectedOutcomes: m["expected_outcomes"].(string),
		ScreenshotURLs:   stringsOf(m["screenshot_urls"]),
		Prerequisites:    stringsOf(m["prerequisites"]),
	}
	if v, ok := m["execution_time_estimate"].(int); ok {
		d.ExecutionTimeEstimate = &v
	}
	if v, ok := m["test_data_requirements"].(string); ok {
		d.TestDataRequirements = &v
	}
	return d
}

func buildGeneric(m map[string]any) TypeData {
	d := &GenericTypeData{
		Base:                 buildBase(m),
		NaturalLanguageSteps: stringsOf(m["natural_language_steps"]),
		SelectorHints:        map[string]string{},
	}
	if hints, ok := m["selector_hints"].(map[string]string); ok {
		d.SelectorHints = hints
	}
	if v, ok := m["ai_confidence_score"].(float64); ok {
		d.AIConfidenceScore = &v
	}
	if v, ok := m["automation_priority"].(string); ok {
		d.AutomationPriority = &v
	}
	if v, ok := m["complexity_score"].(float64); ok {
		d.ComplexityScore = &v
	}
	return d
}

func stringsOf(v any) []string {
	if s, ok := v.([]string); ok {
		return s
	}
	return []string{}
}

// defaultKeyword capitalizes a block type: "given" -> "Given"
func defaultKeyword(blockType string) string {
	if blockType == "" {
		return ""
	}
	return strings.ToUpper(blockType[:1]) + blockType[1:]
}
