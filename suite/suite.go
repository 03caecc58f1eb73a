// Package suite holds the declarative test-suite model, the document loader,
// and the parameterized case expander.
package suite

import (
	"github.com/fuchsia74/apiconform/schema"
)

// StreamRules declares what a streaming case expects from the chunk
// sequence. Zero values mean "not checked".
type StreamRules struct {
	// RequiredEvents lists event discriminator values that must appear at
	// least once across the stream.
	RequiredEvents []string
	// ChunkSchema, when set, is applied to every well-formed chunk; missing
	// fields aggregate across the stream.
	ChunkSchema *schema.Object
	// MinChunks is the minimum number of well-formed chunks, at least 1.
	MinChunks int
	// TextField names the text-delta field whose values concatenate into the
	// reconstructed content.
	TextField string
	// EventField names the discriminator field on each chunk.
	EventField string
}

// Case is one executable test. Built by suite load or expansion, immutable
// thereafter.
type Case struct {
	Name        string
	Description string
	// Params are the case's own parameters, merged over the suite base
	// params by the runner.
	Params map[string]any
	// UnsupportedParam names the dotted parameter path to blame when the
	// case fails; a failing negative test then documents that the endpoint
	// rejects this parameter.
	UnsupportedParam string
	Stream           bool
	// OverrideBase starts the merge from empty params instead of the suite
	// base params.
	OverrideBase bool
	// SkipParamWrapper merges case params directly even when the suite
	// declares a wrapper key.
	SkipParamWrapper bool
	// EndpointOverride replaces the suite endpoint path for this case.
	EndpointOverride string
	StreamRules      *StreamRules
	// UploadFiles maps multipart form field names to file paths. Files are
	// opened per attempt and closed on every exit path.
	UploadFiles map[string]string
	// Schema is the resolved response descriptor; nil means a 2xx status is
	// sufficient.
	Schema *schema.Object
}

// Suite owns its cases. Loaded once, read-only during a run.
type Suite struct {
	Name            string
	Provider        string
	Endpoint        string
	Schemas         map[string]*schema.Object
	BaseParams      map[string]any
	ParamWrapperKey string
	Cases           []Case
}
