package suite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandCaseOrderAndNaming(t *testing.T) {
	template := Case{
		Name: "temperature",
		Params: map[string]any{
			"model":       "m",
			"temperature": "$t",
		},
	}

	variants, err := expandCase(template, map[string][]any{
		"t": {float64(0), float64(1), 1.5},
	})
	require.NoError(t, err)
	require.Len(t, variants, 3)

	require.Equal(t, "temperature[0]", variants[0].Name)
	require.Equal(t, "temperature[1]", variants[1].Name)
	require.Equal(t, "temperature[1.5]", variants[2].Name)

	require.Equal(t, float64(0), variants[0].Params["temperature"])
	require.Equal(t, 1.5, variants[2].Params["temperature"])
	require.Equal(t, "m", variants[0].Params["model"])
}

func TestExpandCaseDeepCopyIsolation(t *testing.T) {
	template := Case{
		Name: "messages",
		Params: map[string]any{
			"messages": []any{
				map[string]any{"role": "user", "content": "$prompt"},
			},
		},
	}

	variants, err := expandCase(template, map[string][]any{
		"prompt": {"hello", "goodbye"},
	})
	require.NoError(t, err)
	require.Len(t, variants, 2)

	first := variants[0].Params["messages"].([]any)[0].(map[string]any)
	second := variants[1].Params["messages"].([]any)[0].(map[string]any)
	require.Equal(t, "hello", first["content"])
	require.Equal(t, "goodbye", second["content"])

	// mutating one variant must not leak into its siblings or the template
	first["content"] = "mutated"
	require.Equal(t, "goodbye", second["content"])
	require.Equal(t, "$prompt", template.Params["messages"].([]any)[0].(map[string]any)["content"])
}

func TestExpandCaseSubstitutesExactMatchesOnly(t *testing.T) {
	template := Case{
		Name: "stop",
		Params: map[string]any{
			"stop":   "$s",
			"prompt": "prefix $s suffix",
		},
	}

	variants, err := expandCase(template, map[string][]any{"s": {"END"}})
	require.NoError(t, err)
	require.Equal(t, "END", variants[0].Params["stop"])
	require.Equal(t, "prefix $s suffix", variants[0].Params["prompt"])
}

func TestExpandCaseListValueSuffix(t *testing.T) {
	template := Case{
		Name:   "stop",
		Params: map[string]any{"stop": "$s"},
	}

	variants, err := expandCase(template, map[string][]any{
		"s": {[]any{"a", "b"}},
	})
	require.NoError(t, err)
	require.Equal(t, "stop[a,b]", variants[0].Name)
	require.Equal(t, []any{"a", "b"}, variants[0].Params["stop"])
}

func TestExpandCaseRejectsMultipleVariables(t *testing.T) {
	_, err := expandCase(Case{Name: "bad"}, map[string][]any{
		"a": {1},
		"b": {2},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one variable")
}

func TestExpandCaseRejectsEmptyValues(t *testing.T) {
	_, err := expandCase(Case{Name: "bad"}, map[string][]any{"a": {}})
	require.Error(t, err)
}

func TestCopyParamsNil(t *testing.T) {
	copied, err := CopyParams(nil)
	require.NoError(t, err)
	require.NotNil(t, copied)
	require.Empty(t, copied)
}
