package runner

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/fuchsia74/apiconform/schema"
	"github.com/fuchsia74/apiconform/suite"
)

// streamState drives the fragment validator. Transitions only move forward:
// Idle → Accumulating → Done or Errored. Accumulating self-loops on
// malformed fragments.
type streamState int

const (
	stateIdle streamState = iota
	stateAccumulating
	stateDone
	stateErrored
)

// fragmentKind classifies one raw stream line.
type fragmentKind int

const (
	// fragmentData carries a decoded JSON payload.
	fragmentData fragmentKind = iota
	// fragmentBlank is framing noise: blank lines, comments, non-data lines.
	fragmentBlank
	// fragmentSkip is a data line whose payload failed to decode. Transports
	// may split frames mid-byte; one corrupt fragment never fails the stream.
	fragmentSkip
	// fragmentTerminal is the end-of-stream sentinel.
	fragmentTerminal
)

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

// tryParseFragment strips SSE framing from one line and classifies the
// payload. Decode failures are data, not errors.
func tryParseFragment(raw []byte) (map[string]any, fragmentKind) {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return nil, fragmentBlank
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return nil, fragmentBlank
	}
	if bytes.Equal(payload, doneSentinel) {
		return nil, fragmentTerminal
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fragmentSkip
	}
	return obj, fragmentData
}

// StreamValidator accumulates SSE-style chunks for one case. Each case owns
// its own instance; state is discarded once the case completes.
type StreamValidator struct {
	rules *suite.StreamRules

	state      streamState
	chunkCount int
	malformed  int
	seenEvents map[string]struct{}
	chunks     []map[string]any
	content    strings.Builder
	readErr    error
}

// defaultStreamRules applies when a streaming case declares no expectations:
// at least one chunk, "type" discriminator, "content" text deltas.
var defaultStreamRules = &suite.StreamRules{
	MinChunks:  1,
	TextField:  "content",
	EventField: "type",
}

func NewStreamValidator(rules *suite.StreamRules) *StreamValidator {
	if rules == nil {
		rules = defaultStreamRules
	}
	return &StreamValidator{
		rules:      rules,
		seenEvents: make(map[string]struct{}),
	}
}

// ParseChunk consumes one raw chunk. Chunks arriving after the terminal
// sentinel are ignored; the state machine never moves backward.
func (v *StreamValidator) ParseChunk(raw []byte) {
	if v.state == stateDone || v.state == stateErrored {
		return
	}
	v.state = stateAccumulating

	for _, line := range bytes.Split(raw, []byte("\n")) {
		obj, kind := tryParseFragment(line)
		switch kind {
		case fragmentTerminal:
			v.state = stateDone
			return
		case fragmentSkip:
			v.malformed++
		case fragmentData:
			v.chunkCount++
			v.chunks = append(v.chunks, obj)
			if event, ok := obj[v.rules.EventField].(string); ok && event != "" {
				v.seenEvents[event] = struct{}{}
			}
			collectText(obj, v.rules.TextField, &v.content)
		}
	}
}

// Finish seals the stream. A nil error reaches Done, anything else Errored.
func (v *StreamValidator) Finish(err error) {
	if v.state == stateDone || v.state == stateErrored {
		return
	}
	if err != nil {
		v.readErr = err
		v.state = stateErrored
		return
	}
	v.state = stateDone
}

func (v *StreamValidator) ChunkCount() int { return v.chunkCount }

// MalformedCount reports how many data lines were skipped as undecodable.
func (v *StreamValidator) MalformedCount() int { return v.malformed }

// CompleteContent concatenates the designated text-delta values in arrival
// order. Only meaningful once the stream is sealed.
func (v *StreamValidator) CompleteContent() string {
	if v.state != stateDone && v.state != stateErrored {
		return ""
	}
	return v.content.String()
}

// StreamOutcome aggregates the declared-expectation checks for one sealed
// stream.
type StreamOutcome struct {
	ChunkCount    int
	MinChunks     int
	MissingEvents []string
	MissingFields []string
	TooFewChunks  bool
}

func (o *StreamOutcome) OK() bool {
	return len(o.MissingEvents) == 0 && len(o.MissingFields) == 0 && !o.TooFewChunks
}

// Validate checks the declared expectations. It must run after Finish; an
// unsealed stream reports every expectation as unmet.
func (v *StreamValidator) Validate() *StreamOutcome {
	outcome := &StreamOutcome{ChunkCount: v.chunkCount, MinChunks: v.rules.MinChunks}

	for _, event := range v.rules.RequiredEvents {
		if _, ok := v.seenEvents[event]; !ok {
			outcome.MissingEvents = append(outcome.MissingEvents, event)
		}
	}

	if v.chunkCount < v.rules.MinChunks {
		outcome.TooFewChunks = true
	}

	if v.rules.ChunkSchema != nil {
		seen := make(map[string]struct{})
		for _, chunk := range v.chunks {
			report := schema.Validate(chunk, v.rules.ChunkSchema)
			for _, field := range report.Fields {
				if field.Status != schema.StatusMissing {
					continue
				}
				if _, ok := seen[field.Path]; ok {
					continue
				}
				seen[field.Path] = struct{}{}
				outcome.MissingFields = append(outcome.MissingFields, field.Path)
			}
		}
	}

	return outcome
}

// collectText recursively gathers string values stored under the designated
// text-delta key, wherever the provider nests them.
func collectText(node any, field string, builder *strings.Builder) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			if key == field {
				if s, ok := child.(string); ok {
					builder.WriteString(s)
					continue
				}
			}
			collectText(child, field, builder)
		}
	case []any:
		for _, child := range v {
			collectText(child, field, builder)
		}
	}
}
