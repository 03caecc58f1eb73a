package runner

import (
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/apiconform/suite"
)

// mergeParams builds the request parameters for one case. The merge starts
// from a deep copy of the suite base params (or empty when the case
// overrides the base), then applies the case params: nested under the
// suite's wrapper key when one is declared and not skipped, otherwise
// directly, case winning per key. There is no deep merge beyond the wrapper
// rule.
func mergeParams(s *suite.Suite, c suite.Case) (map[string]any, error) {
	var merged map[string]any
	if c.OverrideBase {
		merged = map[string]any{}
	} else {
		var err error
		merged, err = suite.CopyParams(s.BaseParams)
		if err != nil {
			return nil, errors.Wrap(err, "copy base params")
		}
	}

	caseParams, err := suite.CopyParams(c.Params)
	if err != nil {
		return nil, errors.Wrap(err, "copy case params")
	}

	if s.ParamWrapperKey != "" && !c.SkipParamWrapper {
		merged[s.ParamWrapperKey] = caseParams
		return merged, nil
	}

	for key, value := range caseParams {
		merged[key] = value
	}
	return merged, nil
}

// valueAtPath resolves a dotted parameter path through nested maps and list
// indices, e.g. "generation.stop_sequences.0".
func valueAtPath(params map[string]any, path string) (any, bool) {
	var current any = params
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// evidenceValue looks the blamed parameter up in the merged request params,
// falling back to the raw case params when the wrapper nesting hides it.
func evidenceValue(merged map[string]any, c suite.Case, wrapper string) any {
	if v, ok := valueAtPath(merged, c.UnsupportedParam); ok {
		return v
	}
	if wrapper != "" {
		if v, ok := valueAtPath(merged, wrapper+"."+c.UnsupportedParam); ok {
			return v
		}
	}
	if v, ok := valueAtPath(c.Params, c.UnsupportedParam); ok {
		return v
	}
	return nil
}
