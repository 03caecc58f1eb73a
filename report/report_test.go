package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/apiconform/runner"
	"github.com/fuchsia74/apiconform/schema"
	"github.com/fuchsia74/apiconform/suite"
)

func sampleRuns() []runner.SuiteRun {
	return []runner.SuiteRun{
		{
			Suite: &suite.Suite{Name: "chat", Provider: "openai", Endpoint: "/v1/chat/completions"},
			Records: []runner.Record{
				{
					Case:    "basic",
					Status:  runner.StatusPass,
					Request: runner.RequestOutcome{StatusCode: 200, Latency: 1200 * time.Millisecond},
				},
				{
					Case:               "temperature[2]",
					ParameterUnderTest: "temperature",
					Status:             runner.StatusFail,
					FailStage:          runner.StageRequest,
					ReasonCode:         runner.ReasonHTTPError,
					Reason:             `HTTP 400: {"error": "invalid temperature"}`,
					Request:            runner.RequestOutcome{StatusCode: 400},
					Unsupported: &runner.Evidence{
						Name:   "temperature",
						Value:  2.0,
						Reason: `HTTP 400: {"error": "invalid temperature"}`,
					},
				},
				{
					Case:       "shape",
					Status:     runner.StatusFail,
					FailStage:  runner.StageSchema,
					ReasonCode: runner.ReasonSchemaMismatch,
					Reason:     "id: MISSING (expected string, got absent)",
					Request:    runner.RequestOutcome{StatusCode: 200},
					Validation: &schema.Report{
						Success: false,
						Fields: []schema.FieldResult{
							{Path: "object", Status: schema.StatusValid, Expected: "string", Actual: `string "chat.completion"`},
							{Path: "id", Status: schema.StatusMissing, Expected: "string", Actual: "absent"},
						},
					},
				},
			},
		},
		{
			Suite: &suite.Suite{Name: "broken", Provider: "nowhere", Endpoint: "/x"},
			Err:   errors.New("provider \"nowhere\" is not configured"),
		},
	}
}

func TestSummarize(t *testing.T) {
	runs := sampleRuns()
	s := Summarize(runs[0])
	if s.Total != 3 || s.Passed != 1 || s.Failed != 2 || s.Unsupported != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if Summarize(runs[1]).Err == nil {
		t.Fatalf("suite error must carry through")
	}
}

func TestRenderConsole(t *testing.T) {
	var buf bytes.Buffer
	RenderConsoleTo(&buf, sampleRuns())
	out := buf.String()

	for _, want := range []string{
		"=== Suite chat",
		"temperature[2]",
		"FAIL",
		"Totals | Cases: 3 | Passed: 1 | Failed: 2 | Unsupported params: 1",
		"suite did not run",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, sampleRuns()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# API conformance report",
		"| chat | openai | /v1/chat/completions | 3 | 1 | 2 |",
		"## chat",
		"### Failures",
		"`id` MISSING: expected string, got absent",
		"### Unsupported parameters",
		"`temperature = 2`",
		"## broken",
		"Suite did not run",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
}
