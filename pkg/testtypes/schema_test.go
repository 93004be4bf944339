package testtypes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
		ok    bool
	}{
		{"int", 5, 5, true},
		{"int64", int64(7), 7, true},
		{"whole float", float64(30), 30, true},
		{"fractional float", 2.5, 0, false},
		{"large whole float", 1e12, 1_000_000_000_000, true},
		{"float beyond int", 1e19, 0, false},
		{"json number", json.Number("12"), 12, true},
		{"json float number", json.Number("1.5"), 0, false},
		{"string", "5", 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestToFloat(t *testing.T) {
	got, ok := toFloat(1)
	assert.True(t, ok)
	assert.Equal(t, 1.0, got)

	got, ok = toFloat(json.Number("0.25"))
	assert.True(t, ok)
	assert.Equal(t, 0.25, got)

	_, ok = toFloat("0.5")
	assert.False(t, ok)
}

func TestStringMap_KeyCollision(t *testing.T) {
	f := Field{
		Kind: KindStringMap,
		Key:  &Field{Kind: KindString, MinLen: 1},
	}

	errs := map[string]string{}
	_, ok := f.check("hints", map[string]any{"btn": "#a", "btn ": "#b"}, errs)
	assert.False(t, ok)
	assert.Equal(t, `duplicate key "btn"`, errs["hints.btn "])

	errs = map[string]string{}
	out, ok := f.check("hints", map[string]any{" btn": "#a"}, errs)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"btn": "#a"}, out)
}

func TestSchema_WrongTypes(t *testing.T) {
	s := manualSchema()

	_, errs := s.structural(map[string]any{
		"manual_notes":            42,
		"expected_outcomes":       "The page loads fine",
		"screenshot_urls":         "http://example.com/a.png",
		"execution_time_estimate": "ten",
	})

	assert.Equal(t, "must be a string", errs["manual_notes"])
	assert.Equal(t, "must be a list", errs["screenshot_urls"])
	assert.Equal(t, "must be an integer", errs["execution_time_estimate"])
	assert.NotContains(t, errs, "expected_outcomes")
}

func TestSchema_TrimsStrings(t *testing.T) {
	s := manualSchema()

	out, errs := s.structural(map[string]any{
		"manual_notes":      "  Open the login page  ",
		"expected_outcomes": "\tLogin form shown\n",
	})

	require.Empty(t, errs)
	assert.Equal(t, "Open the login page", out["manual_notes"])
	assert.Equal(t, "Login form shown", out["expected_outcomes"])
}

func TestSchema_DropsUnknownFields(t *testing.T) {
	s := genericSchema()

	out, errs := s.structural(map[string]any{"unexpected": true})

	require.Empty(t, errs)
	assert.NotContains(t, out, "unexpected")
	assert.Contains(t, out, "selector_hints")
}

func TestSchema_CreatedAt(t *testing.T) {
	s := genericSchema()
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	out, errs := s.structural(map[string]any{"created_at": stamp.Format(time.RFC3339)})
	require.Empty(t, errs)
	assert.True(t, stamp.Equal(out["created_at"].(time.Time)))

	_, errs = s.structural(map[string]any{"created_at": "yesterday"})
	assert.Equal(t, "must be an RFC 3339 timestamp", errs["created_at"])
}

func TestSchema_TypeMustMatch(t *testing.T) {
	s := bddSchema()

	_, errs := s.structural(map[string]any{"type": "manual"})
	assert.Equal(t, "must be one of: bdd", errs["type"])
}

func TestSchema_Decode_SkipsSemanticRules(t *testing.T) {
	s := bddSchema()

	// When before Given is a semantic violation, Decode does not check it.
	td, err := s.Decode(map[string]any{
		"feature_name":  "Auth",
		"scenario_name": "Login",
		"bdd_blocks": []any{
			map[string]any{"type": "when", "content": "x"},
			map[string]any{"type": "given", "content": "y"},
		},
	})
	require.NoError(t, err)

	d, ok := td.(*BDDTypeData)
	require.True(t, ok)
	assert.Equal(t, TestTypeBDD, d.TestType())
	assert.Len(t, d.BDDBlocks, 2)
}

func TestSchema_Introspection(t *testing.T) {
	s := manualSchema()

	assert.Equal(t, []string{"manual_notes", "expected_outcomes"}, s.Required())
	assert.Contains(t, s.FieldNames(), "prerequisites")

	f, ok := s.Field("execution_time_estimate")
	require.True(t, ok)
	assert.Equal(t, KindInt, f.Kind)
	assert.Equal(t, "min=1 max=480", f.Constraints())

	f, ok = s.Field("screenshot_urls")
	require.True(t, ok)
	assert.Equal(t, "max_items=10 item(min_len=1 max_len=2000)", f.Constraints())

	_, ok = s.Field("nope")
	assert.False(t, ok)
}
