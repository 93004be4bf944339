package testtypes

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind is the value type a schema Field accepts
type Kind string

const (
	KindString     Kind = "string"
	KindEnum       Kind = "enum"
	KindInt        Kind = "integer"
	KindFloat      Kind = "number"
	KindTime       Kind = "datetime"
	KindStringList Kind = "string_list"
	KindStringMap  Kind = "string_map"
	KindObjectList Kind = "object_list"
)

// Rule is an extra per-field check run after the type and bound checks pass.
// It receives the normalized value (string, int, float64, []string, map[string]string, ...).
type Rule func(value any) error

// Field describes one key of a type-data payload
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string

	// String bounds, counted in runes after trimming (0 = unbounded)
	MinLen int
	MaxLen int
	// Verbatim strings are checked and kept without trimming
	Verbatim bool

	// List and map bounds (0 = unbounded)
	MinItems int
	MaxItems int

	// Numeric bounds
	Min *float64
	Max *float64

	// Allowed values for KindEnum, lower case
	Enum []string

	// Default produces the value used when the field is absent or null
	Default func() any

	// Overrides for the generic bound messages
	TooSmall string
	TooLarge string
	TooMany  string

	Key    *Field  // KindStringMap keys
	Item   *Field  // list items and map values
	Fields []Field // KindObjectList item fields

	Rules []Rule
}

// Schema is the structural definition of one test type's payload
type Schema struct {
	Type   TestType
	Fields []Field

	build func(normalized map[string]any) TypeData
}

// Field looks up a top-level field by name
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the top-level field names in declaration order
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Required returns the names of the required top-level fields
func (s *Schema) Required() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Decode runs the structural pass only and builds the typed record.
// Semantic rules are not applied; use a Validator for that.
func (s *Schema) Decode(raw map[string]any) (TypeData, error) {
	normalized, fieldErrors := s.structural(raw)
	if len(fieldErrors) > 0 {
		return nil, newStructuralError(s.Type, fieldErrors)
	}
	return s.build(normalized), nil
}

// Constraints renders a short human-readable summary of the field's bounds
func (f Field) Constraints() string {
	var parts []string
	if f.MinLen > 0 {
		parts = append(parts, fmt.Sprintf("min_len=%d", f.MinLen))
	}
	if f.MaxLen > 0 {
		parts = append(parts, fmt.Sprintf("max_len=%d", f.MaxLen))
	}
	if f.MinItems > 0 {
		parts = append(parts, fmt.Sprintf("min_items=%d", f.MinItems))
	}
	if f.MaxItems > 0 {
		parts = append(parts, fmt.Sprintf("max_items=%d", f.MaxItems))
	}
	if f.Min != nil {
		parts = append(parts, fmt.Sprintf("min=%g", *f.Min))
	}
	if f.Max != nil {
		parts = append(parts, fmt.Sprintf("max=%g", *f.Max))
	}
	if len(f.Enum) > 0 {
		parts = append(parts, "one_of="+strings.Join(f.Enum, "|"))
	}
	if f.Item != nil {
		if inner := f.Item.Constraints(); inner != "" {
			parts = append(parts, "item("+inner+")")
		}
	}
	return strings.Join(parts, " ")
}

// structural interprets the schema against raw, collecting one message per bad path.
// Unknown keys are dropped.
func (s *Schema) structural(raw map[string]any) (map[string]any, map[string]string) {
	errs := make(map[string]string)
	out := checkObject("", s.Fields, raw, errs)
	return out, errs
}

func checkObject(prefix string, fields []Field, raw map[string]any, errs map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				errs[path] = "field is required"
				continue
			}
			if f.Default != nil {
				out[f.Name] = f.Default()
			} else {
				out[f.Name] = nil
			}
			continue
		}

		if nv, ok := f.check(path, v, errs); ok {
			out[f.Name] = nv
		}
	}
	return out
}

func (f *Field) check(path string, v any, errs map[string]string) (any, bool) {
	var (
		nv any
		ok bool
	)

	switch f.Kind {
	case KindString:
		nv, ok = f.checkString(path, v, errs)
	case KindEnum:
		nv, ok = f.checkEnum(path, v, errs)
	case KindInt:
		nv, ok = f.checkInt(path, v, errs)
	case KindFloat:
		nv, ok = f.checkFloat(path, v, errs)
	case KindTime:
		nv, ok = f.checkTime(path, v, errs)
	case KindStringList:
		nv, ok = f.checkStringList(path, v, errs)
	case KindStringMap:
		nv, ok = f.checkStringMap(path, v, errs)
	case KindObjectList:
		nv, ok = f.checkObjectList(path, v, errs)
	default:
		errs[path] = fmt.Sprintf("unsupported field kind %q", f.Kind)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	for _, rule := range f.Rules {
		if err := rule(nv); err != nil {
			errs[path] = err.Error()
			return nil, false
		}
	}
	return nv, true
}

func (f *Field) checkString(path string, v any, errs map[string]string) (any, bool) {
	s, ok := v.(string)
	if !ok {
		errs[path] = "must be a string"
		return nil, false
	}
	if !f.Verbatim {
		s = strings.TrimSpace(s)
	}
	n := utf8.RuneCountInString(s)

	if f.MinLen > 0 && n < f.MinLen {
		if f.TooSmall != "" {
			errs[path] = f.TooSmall
		} else if f.MinLen == 1 {
			errs[path] = "cannot be empty"
		} else {
			errs[path] = fmt.Sprintf("must be at least %d characters", f.MinLen)
		}
		return nil, false
	}
	if f.MaxLen > 0 && n > f.MaxLen {
		if f.TooLarge != "" {
			errs[path] = f.TooLarge
		} else {
			errs[path] = fmt.Sprintf("cannot exceed %d characters", f.MaxLen)
		}
		return nil, false
	}
	return s, true
}

func (f *Field) checkEnum(path string, v any, errs map[string]string) (any, bool) {
	s, ok := v.(string)
	if !ok {
		errs[path] = "must be a string"
		return nil, false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, allowed := range f.Enum {
		if s == allowed {
			return s, true
		}
	}
	errs[path] = fmt.Sprintf("must be one of: %s", strings.Join(f.Enum, ", "))
	return nil, false
}

func (f *Field) checkInt(path string, v any, errs map[string]string) (any, bool) {
	n, ok := toInt(v)
	if !ok {
		errs[path] = "must be an integer"
		return nil, false
	}
	if !f.inRange(path, float64(n), errs) {
		return nil, false
	}
	return n, true
}

func (f *Field) checkFloat(path string, v any, errs map[string]string) (any, bool) {
	n, ok := toFloat(v)
	if !ok {
		errs[path] = "must be a number"
		return nil, false
	}
	if !f.inRange(path, n, errs) {
		return nil, false
	}
	return n, true
}

func (f *Field) inRange(path string, n float64, errs map[string]string) bool {
	below := f.Min != nil && n < *f.Min
	above := f.Max != nil && n > *f.Max
	if !below && !above {
		return true
	}

	switch {
	case below && f.TooSmall != "":
		errs[path] = f.TooSmall
	case above && f.TooLarge != "":
		errs[path] = f.TooLarge
	case f.Min != nil && f.Max != nil:
		errs[path] = fmt.Sprintf("must be between %g and %g", *f.Min, *f.Max)
	case below:
		errs[path] = fmt.Sprintf("must be at least %g", *f.Min)
	default:
		errs[path] = fmt.Sprintf("must be at most %g", *f.Max)
	}
	return false
}

func (f *Field) checkTime(path string, v any, errs map[string]string) (any, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
		if err == nil {
			return parsed.UTC(), true
		}
	}
	errs[path] = "must be an RFC 3339 timestamp"
	return nil, false
}

func (f *Field) checkStringList(path string, v any, errs map[string]string) (any, bool) {
	items, ok := toSlice(v)
	if !ok {
		errs[path] = "must be a list"
		return nil, false
	}
	if !f.countInRange(path, len(items), errs) {
		return nil, false
	}

	out := make([]string, 0, len(items))
	failed := false
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		nv, ok := f.itemField().check(itemPath, item, errs)
		if !ok {
			failed = true
			continue
		}
		out = append(out, nv.(string))
	}
	if failed {
		return nil, false
	}
	return out, true
}

func (f *Field) checkStringMap(path string, v any, errs map[string]string) (any, bool) {
	m, ok := toMap(v)
	if !ok {
		errs[path] = "must be an object"
		return nil, false
	}
	if !f.countInRange(path, len(m), errs) {
		return nil, false
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(m))
	failed := false
	for _, k := range keys {
		entryPath := path + "." + k
		key := k
		if f.Key != nil {
			nk, ok := f.Key.check(entryPath, k, errs)
			if !ok {
				failed = true
				continue
			}
			key = nk.(string)
		}
		if _, dup := out[key]; dup {
			errs[entryPath] = fmt.Sprintf("duplicate key %q", key)
			failed = true
			continue
		}
		nv, ok := f.itemField().check(entryPath, m[k], errs)
		if !ok {
			failed = true
			continue
		}
		out[key] = nv.(string)
	}
	if failed {
		return nil, false
	}
	return out, true
}

func (f *Field) checkObjectList(path string, v any, errs map[string]string) (any, bool) {
	items, ok := toSlice(v)
	if !ok {
		errs[path] = "must be a list"
		return nil, false
	}
	if !f.countInRange(path, len(items), errs) {
		return nil, false
	}

	out := make([]map[string]any, 0, len(items))
	before := len(errs)
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := toMap(item)
		if !ok {
			errs[itemPath] = "must be an object"
			continue
		}
		out = append(out, checkObject(itemPath, f.Fields, obj, errs))
	}
	if len(errs) > before {
		return nil, false
	}
	return out, true
}

func (f *Field) countInRange(path string, n int, errs map[string]string) bool {
	if f.MinItems > 0 && n < f.MinItems {
		errs[path] = fmt.Sprintf("must have at least %d item(s)", f.MinItems)
		return false
	}
	if f.MaxItems > 0 && n > f.MaxItems {
		if f.TooMany != "" {
			errs[path] = f.TooMany
		} else {
			errs[path] = fmt.Sprintf("cannot have more than %d items", f.MaxItems)
		}
		return false
	}
	return true
}

func (f *Field) itemField() *Field {
	if f.Item != nil {
		return f.Item
	}
	return &Field{Kind: KindString}
}

// Coercion helpers. JSON decoding yields float64 for every number, Go callers may pass ints,
// and persisted payloads may come back through json.Number.

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(math.MaxInt) rounds up past the largest int
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return toFloat(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return toFloat(f)
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = item
		}
		return out, true
	}
	return nil, false
}

func bound(f float64) *float64 {
	return &f
}
