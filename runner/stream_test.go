package runner

import (
	"fmt"
	"io"
	"testing"

	"github.com/fuchsia74/apiconform/suite"
)

func chunkLine(event, content string) []byte {
	return []byte(fmt.Sprintf(`data: {"type": %q, "choices": [{"delta": {"content": %q}}]}`+"\n\n", event, content))
}

func TestStreamValidatorHappyPath(t *testing.T) {
	rules := &suite.StreamRules{
		RequiredEvents: []string{"start", "done"},
		MinChunks:      3,
		TextField:      "content",
		EventField:     "type",
	}
	sv := NewStreamValidator(rules)

	sv.ParseChunk(chunkLine("start", ""))
	sv.ParseChunk(chunkLine("delta", "hel"))
	sv.ParseChunk(chunkLine("delta", "lo"))
	sv.ParseChunk([]byte("data: {not json\n"))
	sv.ParseChunk(chunkLine("done", ""))
	sv.ParseChunk([]byte(": keep-alive comment\n"))
	sv.ParseChunk([]byte("data: [DONE]\n"))
	sv.Finish(nil)

	if sv.ChunkCount() != 4 {
		t.Fatalf("chunk count = %d, want 4", sv.ChunkCount())
	}
	if sv.MalformedCount() != 1 {
		t.Fatalf("malformed count = %d, want 1", sv.MalformedCount())
	}
	if got := sv.CompleteContent(); got != "hello" {
		t.Fatalf("complete content = %q, want %q", got, "hello")
	}

	outcome := sv.Validate()
	if !outcome.OK() {
		t.Fatalf("expected stream to validate, got %+v", outcome)
	}
}

func TestStreamValidatorIgnoresChunksAfterDone(t *testing.T) {
	sv := NewStreamValidator(nil)
	sv.ParseChunk(chunkLine("delta", "a"))
	sv.ParseChunk([]byte("data: [DONE]\n"))
	sv.ParseChunk(chunkLine("delta", "b"))

	if sv.ChunkCount() != 1 {
		t.Fatalf("chunks after the terminal sentinel must be ignored, count = %d", sv.ChunkCount())
	}
	if got := sv.CompleteContent(); got != "a" {
		t.Fatalf("complete content = %q, want %q", got, "a")
	}
}

func TestStreamValidatorMissingEvents(t *testing.T) {
	rules := &suite.StreamRules{
		RequiredEvents: []string{"start", "done"},
		MinChunks:      1,
		TextField:      "content",
		EventField:     "type",
	}
	sv := NewStreamValidator(rules)
	sv.ParseChunk(chunkLine("start", "x"))
	sv.Finish(nil)

	outcome := sv.Validate()
	if outcome.OK() {
		t.Fatalf("expected missing event failure")
	}
	if len(outcome.MissingEvents) != 1 || outcome.MissingEvents[0] != "done" {
		t.Fatalf("missing events = %v, want [done]", outcome.MissingEvents)
	}
}

func TestStreamValidatorTooFewChunks(t *testing.T) {
	rules := &suite.StreamRules{MinChunks: 5, TextField: "content", EventField: "type"}
	sv := NewStreamValidator(rules)
	sv.ParseChunk(chunkLine("delta", "x"))
	sv.Finish(nil)

	outcome := sv.Validate()
	if !outcome.TooFewChunks {
		t.Fatalf("expected too-few-chunks, got %+v", outcome)
	}
	if outcome.MinChunks != 5 || outcome.ChunkCount != 1 {
		t.Fatalf("outcome counts wrong: %+v", outcome)
	}
}

func TestStreamValidatorChunkSchema(t *testing.T) {
	lib := parseSchemas(t, `
chunk:
  id: string
  type: string
`)
	rules := &suite.StreamRules{
		MinChunks:   1,
		TextField:   "content",
		EventField:  "type",
		ChunkSchema: lib["chunk"],
	}
	sv := NewStreamValidator(rules)
	sv.ParseChunk([]byte(`data: {"type": "delta"}` + "\n"))
	sv.ParseChunk([]byte(`data: {"type": "delta"}` + "\n"))
	sv.Finish(nil)

	outcome := sv.Validate()
	if len(outcome.MissingFields) != 1 || outcome.MissingFields[0] != "id" {
		t.Fatalf("missing fields must deduplicate across chunks, got %v", outcome.MissingFields)
	}
}

func TestStreamValidatorFinishWithError(t *testing.T) {
	sv := NewStreamValidator(nil)
	sv.ParseChunk(chunkLine("delta", "partial"))
	sv.Finish(io.ErrUnexpectedEOF)

	// a sealed stream stays sealed
	sv.Finish(nil)
	sv.ParseChunk(chunkLine("delta", "late"))

	if sv.ChunkCount() != 1 {
		t.Fatalf("errored stream must stop accumulating, count = %d", sv.ChunkCount())
	}
	if got := sv.CompleteContent(); got != "partial" {
		t.Fatalf("complete content = %q, want %q", got, "partial")
	}
}

func TestTryParseFragmentClassification(t *testing.T) {
	cases := []struct {
		line string
		want fragmentKind
	}{
		{"", fragmentBlank},
		{": comment", fragmentBlank},
		{"event: message", fragmentBlank},
		{"data:", fragmentBlank},
		{"data: [DONE]", fragmentTerminal},
		{"data: {broken", fragmentSkip},
		{`data: {"ok": true}`, fragmentData},
		{`data:{"ok": true}`, fragmentData},
	}
	for _, tc := range cases {
		if _, kind := tryParseFragment([]byte(tc.line)); kind != tc.want {
			t.Fatalf("line %q classified %d, want %d", tc.line, kind, tc.want)
		}
	}
}
