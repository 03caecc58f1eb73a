package schema

import (
	"fmt"
	"math"
	"sort"
)

// FieldStatus classifies the outcome for one JSON path.
type FieldStatus string

const (
	StatusValid       FieldStatus = "VALID"
	StatusMissing     FieldStatus = "MISSING"
	StatusInvalidType FieldStatus = "INVALID_TYPE"
	StatusUnexpected  FieldStatus = "UNEXPECTED"
)

// FieldResult records the outcome for one JSON path.
type FieldResult struct {
	Path     string      `json:"path"`
	Status   FieldStatus `json:"status"`
	Expected string      `json:"expected"`
	Actual   string      `json:"actual"`
}

// Report is the immutable outcome of validating one response body.
// Success excludes UNEXPECTED records: extra undeclared keys never fail a
// response.
type Report struct {
	Provider     string        `json:"provider"`
	Endpoint     string        `json:"endpoint"`
	Success      bool          `json:"success"`
	TotalFields  int           `json:"total_fields"`
	ValidCount   int           `json:"valid_count"`
	InvalidCount int           `json:"invalid_count"`
	Fields       []FieldResult `json:"fields"`
	RawResponse  any           `json:"raw_response,omitempty"`
}

const maxActualValueLen = 50

// Validate walks the decoded JSON value against the object descriptor and
// returns an ordered report. It never fails: every divergence becomes a
// field result. Descriptors are read-only, so one Object may be shared by
// concurrent Validate calls.
func Validate(value any, obj *Object) *Report {
	w := &walker{}

	root, ok := value.(map[string]any)
	if !ok {
		w.record("$", StatusInvalidType, "object "+obj.Name, describeValue(value))
	} else {
		w.walkObject("", root, obj)
	}

	report := &Report{
		Fields:      w.fields,
		RawResponse: value,
	}
	for _, f := range w.fields {
		report.TotalFields++
		switch f.Status {
		case StatusValid:
			report.ValidCount++
		case StatusMissing, StatusInvalidType:
			report.InvalidCount++
		}
	}
	report.Success = report.InvalidCount == 0
	return report
}

type walker struct {
	fields []FieldResult
}

func (w *walker) record(path string, status FieldStatus, expected, actual string) {
	w.fields = append(w.fields, FieldResult{
		Path:     path,
		Status:   status,
		Expected: expected,
		Actual:   actual,
	})
}

// walkObject applies the declared fields in declaration order, then reports
// undeclared keys. Undeclared keys are sorted so repeated validations of the
// same value yield identical ordered results.
func (w *walker) walkObject(prefix string, value map[string]any, obj *Object) {
	declared := make(map[string]struct{}, len(obj.Fields))
	for _, field := range obj.Fields {
		declared[field.Name] = struct{}{}
		path := joinPath(prefix, field.Name)
		raw, present := value[field.Name]
		if !present {
			if field.Required {
				w.record(path, StatusMissing, field.Form.Describe(), "absent")
			}
			continue
		}
		// optional fields tolerate explicit null
		if raw == nil && !field.Required {
			w.record(path, StatusValid, field.Form.Describe(), "null")
			continue
		}
		w.walkForm(path, raw, field.Form)
	}

	var extras []string
	for key := range value {
		if _, ok := declared[key]; !ok {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		w.record(joinPath(prefix, key), StatusUnexpected, "not declared", describeValue(value[key]))
	}
}

func (w *walker) walkForm(path string, value any, form *Form) {
	if form.Type == FormLiteral {
		if literalMatches(value, form.Literals) {
			w.record(path, StatusValid, form.Describe(), describeValue(value))
		} else {
			w.record(path, StatusInvalidType, form.Describe(), describeValue(value))
		}
		return
	}

	if value == nil {
		if form.allowsNull() {
			w.record(path, StatusValid, form.Describe(), "null")
		} else {
			w.record(path, StatusInvalidType, form.Describe(), "null")
		}
		return
	}

	switch form.Type {
	case FormUnion:
		w.walkUnion(path, value, form)
	case FormList:
		items, ok := value.([]any)
		if !ok {
			w.record(path, StatusInvalidType, form.Describe(), describeValue(value))
			return
		}
		w.record(path, StatusValid, form.Describe(), fmt.Sprintf("list with %d items", len(items)))
		for i, item := range items {
			w.walkForm(fmt.Sprintf("%s[%d]", path, i), item, form.Elem)
		}
	case FormMap:
		if _, ok := value.(map[string]any); ok {
			w.record(path, StatusValid, form.Describe(), "object")
		} else {
			w.record(path, StatusInvalidType, form.Describe(), describeValue(value))
		}
	case FormObject:
		nested, ok := value.(map[string]any)
		if !ok {
			w.record(path, StatusInvalidType, form.Describe(), describeValue(value))
			return
		}
		w.walkObject(path, nested, form.Object)
	case FormPrimitive:
		if primitiveMatches(value, form.Prim) {
			w.record(path, StatusValid, form.Describe(), describeValue(value))
		} else {
			w.record(path, StatusInvalidType, form.Describe(), describeValue(value))
		}
	}
}

// walkUnion probes each alternative in declaration order with a lightweight
// compatibility check, then fully validates the first alternative that
// probes true. When two non-discriminated alternatives both probe true the
// first declared wins. No probed match yields a single INVALID_TYPE for the
// whole union.
func (w *walker) walkUnion(path string, value any, form *Form) {
	for _, alt := range form.Alternatives {
		if probe(value, alt) {
			w.walkForm(path, value, alt)
			return
		}
	}
	w.record(path, StatusInvalidType, form.Describe(), describeValue(value))
}

// probe is a shallow compatibility check. Object alternatives declaring a
// "type" literal field resolve by comparing that discriminator value instead
// of shape alone.
func probe(value any, form *Form) bool {
	switch form.Type {
	case FormPrimitive:
		if form.Prim == KindNull {
			return value == nil
		}
		return primitiveMatches(value, form.Prim)
	case FormLiteral:
		return literalMatches(value, form.Literals)
	case FormObject:
		m, ok := value.(map[string]any)
		if !ok {
			return false
		}
		if literals, ok := form.discriminator(); ok {
			return literalMatches(m["type"], literals)
		}
		return true
	case FormList:
		_, ok := value.([]any)
		return ok
	case FormMap:
		_, ok := value.(map[string]any)
		return ok
	case FormUnion:
		for _, alt := range form.Alternatives {
			if probe(value, alt) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func primitiveMatches(value any, kind Kind) bool {
	switch kind {
	case KindNull:
		return value == nil
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindString:
		_, ok := value.(string)
		return ok
	case KindInt:
		n, ok := value.(float64)
		return ok && n == math.Trunc(n)
	case KindFloat:
		// integers are accepted where floats are declared
		_, ok := value.(float64)
		return ok
	default:
		return false
	}
}

func literalMatches(value any, literals []any) bool {
	for _, lit := range literals {
		if literalEquals(value, lit) {
			return true
		}
	}
	return false
}

// literalEquals compares a decoded JSON value against a declared literal.
// Numbers compare by value regardless of the declared literal's Go type.
func literalEquals(value, lit any) bool {
	if vn, ok := asFloat(value); ok {
		if ln, ok := asFloat(lit); ok {
			return vn == ln
		}
		return false
	}
	return value == lit
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// describeValue renders the actual value for a field result, clamping long
// strings so evidence stays readable.
func describeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return fmt.Sprintf("bool %t", v)
	case string:
		if len(v) > maxActualValueLen {
			v = v[:maxActualValueLen] + "…"
		}
		return fmt.Sprintf("string %q", v)
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("number %d", int64(v))
		}
		return fmt.Sprintf("number %v", v)
	case map[string]any:
		return fmt.Sprintf("object with %d keys", len(v))
	case []any:
		return fmt.Sprintf("list with %d items", len(v))
	default:
		return fmt.Sprintf("%T", value)
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
