package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const chatSuiteDoc = `
provider: openai
endpoint: /v1/chat/completions
param_wrapper: ""
schemas:
  completion:
    id: string
    object: enum(chat.completion)
    choices:
      - index: int
        message:
          role: string
          content: union(string|null)
    usage?: map
  chunk:
    id: string
    choices:
      - delta: "@delta"
  delta:
    content?: string
response_schema: completion
base_params:
  model: gpt-4o-mini
  messages:
    - role: user
      content: hi
tests:
  - name: basic
    description: minimal request
  - name: temperature
    unsupported_param: temperature
    parameterize:
      t: [0, 1, 2]
    params:
      temperature: $t
  - name: streaming
    stream: true
    params:
      stream: true
    stream_rules:
      chunk_schema: chunk
      min_chunks: 2
`

func writeSuite(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSuiteDocument(t *testing.T) {
	path := writeSuite(t, t.TempDir(), "chat.yaml", chatSuiteDoc)

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "chat", s.Name)
	require.Equal(t, "openai", s.Provider)
	require.Equal(t, "/v1/chat/completions", s.Endpoint)
	require.Equal(t, "gpt-4o-mini", s.BaseParams["model"])

	// basic + 3 temperature variants + streaming
	require.Len(t, s.Cases, 5)
	require.Equal(t, "basic", s.Cases[0].Name)
	require.Equal(t, "temperature[0]", s.Cases[1].Name)
	require.Equal(t, "temperature[1]", s.Cases[2].Name)
	require.Equal(t, "temperature[2]", s.Cases[3].Name)
	require.Equal(t, "streaming", s.Cases[4].Name)

	require.NotNil(t, s.Cases[0].Schema)
	require.Equal(t, "completion", s.Cases[0].Schema.Name)
	require.Equal(t, "temperature", s.Cases[1].UnsupportedParam)
	require.Equal(t, 1, s.Cases[2].Params["temperature"])
}

func TestLoadAppliesStreamRuleDefaults(t *testing.T) {
	path := writeSuite(t, t.TempDir(), "chat.yaml", chatSuiteDoc)
	s, err := Load(path)
	require.NoError(t, err)

	rules := s.Cases[4].StreamRules
	require.NotNil(t, rules)
	require.Equal(t, 2, rules.MinChunks)
	require.Equal(t, "content", rules.TextField)
	require.Equal(t, "type", rules.EventField)
	require.NotNil(t, rules.ChunkSchema)
	require.Equal(t, "chunk", rules.ChunkSchema.Name)
}

func TestParseRejectsMissingProvider(t *testing.T) {
	_, err := Parse([]byte(`
endpoint: /v1/models
tests:
  - name: list
`), "broken")
	require.Error(t, err)
	require.Contains(t, err.Error(), "document validation")
}

func TestParseRejectsEmptyTests(t *testing.T) {
	_, err := Parse([]byte(`
provider: openai
endpoint: /v1/models
tests: []
`), "broken")
	require.Error(t, err)
}

func TestParseRejectsUndeclaredSchemaReference(t *testing.T) {
	_, err := Parse([]byte(`
provider: openai
endpoint: /v1/models
response_schema: nope
tests:
  - name: list
`), "broken")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"nope"`)
}

func TestParsePerCaseSchemaOverride(t *testing.T) {
	s, err := Parse([]byte(`
provider: openai
endpoint: /v1/chat/completions
schemas:
  a:
    id: string
  b:
    name: string
response_schema: a
tests:
  - name: default
  - name: override
    schema: b
`), "mixed")
	require.NoError(t, err)
	require.Equal(t, "a", s.Cases[0].Schema.Name)
	require.Equal(t, "b", s.Cases[1].Schema.Name)
}

func TestLoadDirSkipsUnloadable(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "good.yaml", chatSuiteDoc)
	writeSuite(t, dir, "broken.yaml", "tests: []\n")
	writeSuite(t, dir, "notes.txt", "not a suite")

	suites, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	require.Equal(t, "good", suites[0].Name)
}
