// Package runner executes test cases end to end: it merges parameters,
// dispatches requests through the transport, applies the structural and
// stream validators, and classifies every case into exactly one result
// record.
package runner

import (
	"sync"
	"time"

	"github.com/fuchsia74/apiconform/schema"
)

// Status is the final classification of one executed case.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Stage attributes a failure to the step that produced it.
type Stage string

const (
	StageRequest        Stage = "request"
	StageSchema         Stage = "schema"
	StageRequiredFields Stage = "requiredFields"
	StageStreamRules    Stage = "streamRules"
)

// Reason codes, stable across releases so reporting can group failures.
const (
	ReasonTransportError = "transport_error"
	ReasonHTTPError      = "http_error"
	ReasonUploadError    = "upload_error"
	ReasonParamsError    = "params_error"
	ReasonMalformedJSON  = "malformed_json"
	ReasonSchemaMismatch = "schema_mismatch"
	ReasonStreamError    = "stream_error"
	ReasonEmptyStream    = "empty_stream"
	ReasonMissingEvents  = "missing_required_events"
	ReasonMissingFields  = "missing_required_fields"
	ReasonTooFewChunks   = "too_few_chunks"
)

// RequestOutcome captures the transport-level view of one case.
type RequestOutcome struct {
	StatusCode int           `json:"status_code"`
	Latency    time.Duration `json:"latency"`
}

// Evidence asserts that a parameter value caused request rejection. A single
// failing negative test thus documents "this endpoint rejects parameter X"
// without a separate capability probe.
type Evidence struct {
	Name   string `json:"name"`
	Value  any    `json:"value"`
	Reason string `json:"reason"`
}

// Record is the final structured outcome of one executed case. Appended once
// per case, never mutated.
type Record struct {
	Suite       string `json:"suite"`
	Case        string `json:"case"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider"`
	Endpoint    string `json:"endpoint"`

	ParameterUnderTest string `json:"parameter_under_test,omitempty"`

	Request    RequestOutcome `json:"request"`
	Validation *schema.Report `json:"validation,omitempty"`

	Status     Status    `json:"status"`
	FailStage  Stage     `json:"fail_stage,omitempty"`
	ReasonCode string    `json:"reason_code,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Streaming  bool      `json:"streaming"`
	Unsupported *Evidence `json:"unsupported,omitempty"`
}

// Collector is the per-run, append-only record list. It is the only shared
// mutable state of a suite run; appends serialize so cases may execute under
// an external worker pool.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

func NewCollector() *Collector {
	return &Collector{}
}

// Append adds one record in completion order.
func (c *Collector) Append(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
}

// Records returns a snapshot of the appended records.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of appended records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
