package suite

import (
	"fmt"
	"math"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"
)

// expandCase turns one templated case into a concrete case per declared
// value. The template binds exactly one variable to a value list; every
// params entry whose value is exactly "$variable" is replaced by the bound
// value. Expansion preserves the declaration order of the value list.
func expandCase(template Case, parameterize map[string][]any) ([]Case, error) {
	if len(parameterize) != 1 {
		return nil, errors.Errorf("case %q: parameterize must bind exactly one variable, got %d", template.Name, len(parameterize))
	}

	var variable string
	var values []any
	for name, list := range parameterize {
		variable, values = name, list
	}
	if len(values) == 0 {
		return nil, errors.Errorf("case %q: parameterize.%s lists no values", template.Name, variable)
	}

	placeholder := "$" + variable
	expanded := make([]Case, 0, len(values))
	for _, value := range values {
		c := template
		params, err := CopyParams(template.Params)
		if err != nil {
			return nil, errors.Wrapf(err, "case %q: copy params", template.Name)
		}
		c.Params = substitute(params, placeholder, value).(map[string]any)
		c.Name = fmt.Sprintf("%s[%s]", template.Name, variantSuffix(value))
		expanded = append(expanded, c)
	}
	return expanded, nil
}

// CopyParams clones a params map so expanded variants and merged requests
// never alias the source's nested maps and slices.
func CopyParams(params map[string]any) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	copied := make(map[string]any, len(params))
	if err := copier.CopyWithOption(&copied, params, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "deep copy params")
	}
	return copied, nil
}

// substitute replaces values exactly equal to the placeholder string. This
// is an exact map-value match, not string interpolation: "prefix $x" stays
// untouched.
func substitute(node any, placeholder string, value any) any {
	switch v := node.(type) {
	case string:
		if v == placeholder {
			return value
		}
		return v
	case map[string]any:
		for key, child := range v {
			v[key] = substitute(child, placeholder, value)
		}
		return v
	case []any:
		for i, child := range v {
			v[i] = substitute(child, placeholder, value)
		}
		return v
	default:
		return node
	}
}

// variantSuffix derives the bracketed name suffix for one bound value. List
// values join with ",", everything else stringifies.
func variantSuffix(value any) string {
	if list, ok := value.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, stringifyValue(item))
		}
		return strings.Join(parts, ",")
	}
	return stringifyValue(value)
}

func stringifyValue(value any) string {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", value)
	}
}
