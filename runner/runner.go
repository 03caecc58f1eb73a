package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"github.com/fuchsia74/apiconform/provider"
	"github.com/fuchsia74/apiconform/schema"
	"github.com/fuchsia74/apiconform/suite"
	"github.com/fuchsia74/apiconform/transport"
)

// Runner executes the cases of one suite. It owns no cross-case state beyond
// the collector, so results are reproducible regardless of scheduling.
type Runner struct {
	suite     *suite.Suite
	provider  *provider.Provider
	transport transport.Transport
	collector *Collector
	logger    glog.Logger
}

func New(s *suite.Suite, p *provider.Provider, t transport.Transport, collector *Collector, logger glog.Logger) *Runner {
	return &Runner{
		suite:     s,
		provider:  p,
		transport: t,
		collector: collector,
		logger:    logger,
	}
}

// RunCase executes one case end to end and appends exactly one record to the
// collector. It reports whether the case passed. A failing case never
// affects its siblings.
func (r *Runner) RunCase(ctx context.Context, c suite.Case) bool {
	endpoint := r.suite.Endpoint
	if c.EndpointOverride != "" {
		endpoint = c.EndpointOverride
	}

	rec := Record{
		Suite:              r.suite.Name,
		Case:               c.Name,
		Description:        c.Description,
		Provider:           r.suite.Provider,
		Endpoint:           endpoint,
		ParameterUnderTest: c.UnsupportedParam,
		Streaming:          c.Stream,
		Status:             StatusPass,
	}

	merged, err := mergeParams(r.suite, c)
	if err != nil {
		fail(&rec, StageRequest, ReasonParamsError, err.Error())
		r.attachEvidence(&rec, c, nil, err.Error())
		return r.finish(rec)
	}

	if c.Stream {
		r.runStreaming(ctx, &rec, c, merged, endpoint)
	} else {
		r.runBuffered(ctx, &rec, c, merged, endpoint)
	}
	return r.finish(rec)
}

func (r *Runner) runBuffered(ctx context.Context, rec *Record, c suite.Case, merged map[string]any, endpoint string) {
	url := r.provider.Endpoint(endpoint)
	headers := r.provider.Headers(nil)

	var body io.Reader
	if len(c.UploadFiles) > 0 {
		files, err := openUploads(c.UploadFiles)
		if err != nil {
			fail(rec, StageRequest, ReasonUploadError, err.Error())
			r.attachEvidence(rec, c, merged, err.Error())
			return
		}
		// released on every exit path: pass, validation failure, or
		// transport error
		defer closeUploads(files)

		buf, contentType, err := multipartBody(merged, files)
		if err != nil {
			fail(rec, StageRequest, ReasonUploadError, err.Error())
			r.attachEvidence(rec, c, merged, err.Error())
			return
		}
		headers["Content-Type"] = contentType
		body = buf
	} else {
		payload, err := json.Marshal(merged)
		if err != nil {
			fail(rec, StageRequest, ReasonParamsError, fmt.Sprintf("marshal params: %v", err))
			r.attachEvidence(rec, c, merged, rec.Reason)
			return
		}
		body = bytes.NewReader(payload)
	}

	start := time.Now()
	resp, err := r.transport.Send(ctx, http.MethodPost, url, headers, body)
	rec.Request.Latency = time.Since(start)
	if err != nil {
		fail(rec, StageRequest, ReasonTransportError, err.Error())
		r.attachEvidence(rec, c, merged, err.Error())
		return
	}
	rec.Request.StatusCode = resp.StatusCode

	httpReason := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, snippet(resp.Body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fail(rec, StageRequest, ReasonHTTPError, httpReason)
		r.attachEvidence(rec, c, merged, httpReason)
		return
	}

	if c.Schema == nil {
		return
	}

	var decoded any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		fail(rec, StageSchema, ReasonMalformedJSON, fmt.Sprintf("malformed JSON response: %v", err))
		r.attachEvidence(rec, c, merged, httpReason)
		return
	}

	report := schema.Validate(decoded, c.Schema)
	report.Provider = r.suite.Provider
	report.Endpoint = endpoint
	rec.Validation = report

	if !report.Success {
		fail(rec, StageSchema, ReasonSchemaMismatch, summarizeReport(report))
		r.attachEvidence(rec, c, merged, httpReason)
	}
}

func (r *Runner) runStreaming(ctx context.Context, rec *Record, c suite.Case, merged map[string]any, endpoint string) {
	url := r.provider.Endpoint(endpoint)
	headers := r.provider.Headers(nil)

	payload, err := json.Marshal(merged)
	if err != nil {
		fail(rec, StageRequest, ReasonParamsError, fmt.Sprintf("marshal params: %v", err))
		r.attachEvidence(rec, c, merged, rec.Reason)
		return
	}

	start := time.Now()
	stream, err := r.transport.SendStream(ctx, http.MethodPost, url, headers, bytes.NewReader(payload))
	if err != nil {
		rec.Request.Latency = time.Since(start)
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			rec.Request.StatusCode = statusErr.StatusCode
			fail(rec, StageRequest, ReasonHTTPError, statusErr.Error())
			r.attachEvidence(rec, c, merged, statusErr.Error())
			return
		}
		fail(rec, StageRequest, ReasonTransportError, err.Error())
		r.attachEvidence(rec, c, merged, "Stream error: "+err.Error())
		return
	}
	defer stream.Close()
	rec.Request.StatusCode = stream.StatusCode

	sv := NewStreamValidator(c.StreamRules)
	for {
		chunk, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				sv.Finish(nil)
				break
			}
			sv.Finish(err)
			rec.Request.Latency = time.Since(start)
			fail(rec, StageRequest, ReasonStreamError, fmt.Sprintf("stream read: %v", err))
			r.attachEvidence(rec, c, merged, fmt.Sprintf("Stream error: %v", err))
			return
		}
		sv.ParseChunk(chunk)
	}
	rec.Request.Latency = time.Since(start)

	if sv.ChunkCount() == 0 {
		fail(rec, StageStreamRules, ReasonEmptyStream, "no stream chunks received")
		r.attachEvidence(rec, c, merged, rec.Reason)
		return
	}

	outcome := sv.Validate()
	switch {
	case len(outcome.MissingFields) > 0:
		fail(rec, StageRequiredFields, ReasonMissingFields,
			"chunks missing required fields: "+strings.Join(outcome.MissingFields, ", "))
	case len(outcome.MissingEvents) > 0:
		fail(rec, StageStreamRules, ReasonMissingEvents,
			"required stream events not seen: "+strings.Join(outcome.MissingEvents, ", "))
	case outcome.TooFewChunks:
		fail(rec, StageStreamRules, ReasonTooFewChunks,
			fmt.Sprintf("received %d chunks, expected at least %d", outcome.ChunkCount, outcome.MinChunks))
	default:
		return
	}
	r.attachEvidence(rec, c, merged, rec.Reason)
}

func fail(rec *Record, stage Stage, code, reason string) {
	rec.Status = StatusFail
	rec.FailStage = stage
	rec.ReasonCode = code
	rec.Reason = reason
}

// attachEvidence synthesizes unsupported-parameter evidence on failure when
// the case names a parameter to blame.
func (r *Runner) attachEvidence(rec *Record, c suite.Case, merged map[string]any, reason string) {
	if c.UnsupportedParam == "" || rec.Status != StatusFail {
		return
	}
	rec.Unsupported = &Evidence{
		Name:   c.UnsupportedParam,
		Value:  evidenceValue(merged, c, r.suite.ParamWrapperKey),
		Reason: reason,
	}
}

// finish appends the single record for this case and logs the outcome.
func (r *Runner) finish(rec Record) bool {
	r.collector.Append(rec)
	switch rec.Status {
	case StatusPass:
		r.logger.Info("case passed",
			zap.String("suite", rec.Suite),
			zap.String("case", rec.Case),
			zap.Bool("stream", rec.Streaming),
			zap.Int("status", rec.Request.StatusCode),
			zap.Duration("latency", rec.Request.Latency),
		)
	default:
		r.logger.Warn("case failed",
			zap.String("suite", rec.Suite),
			zap.String("case", rec.Case),
			zap.Bool("stream", rec.Streaming),
			zap.Int("status", rec.Request.StatusCode),
			zap.String("stage", string(rec.FailStage)),
			zap.String("reason_code", rec.ReasonCode),
			zap.String("reason", shorten(rec.Reason, 200)),
		)
	}
	return rec.Status == StatusPass
}

// summarizeReport condenses a failed validation into a short reason listing
// the first divergent fields.
func summarizeReport(report *schema.Report) string {
	const maxListed = 3
	var parts []string
	for _, field := range report.Fields {
		if field.Status != schema.StatusMissing && field.Status != schema.StatusInvalidType {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s (expected %s, got %s)",
			field.Path, field.Status, field.Expected, field.Actual))
		if len(parts) == maxListed {
			break
		}
	}
	summary := strings.Join(parts, "; ")
	if report.InvalidCount > maxListed {
		summary += fmt.Sprintf("; and %d more", report.InvalidCount-maxListed)
	}
	return summary
}
