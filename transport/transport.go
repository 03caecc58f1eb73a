// Package transport issues the engine's HTTP exchanges over shared pooled
// clients. Timeouts live here; they surface to the runner as ordinary
// request failures.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/apiconform/common/client"
	"github.com/fuchsia74/apiconform/common/config"
)

// Response is one fully buffered exchange. Non-2xx responses are returned,
// not raised; the runner decides what a status means.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StatusError reports a non-2xx status on a streaming request, raised
// before any chunk is yielded.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Transport is the engine's outbound interface. One case blocks on one call
// at a time.
type Transport interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*Response, error)
	SendStream(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*Stream, error)
}

// HTTP is the production Transport over the shared pooled clients.
type HTTP struct {
	client       *http.Client
	streamClient *http.Client
	maxBodyBytes int
}

// NewHTTP returns a Transport using the process-wide pooled clients.
func NewHTTP() *HTTP {
	return &HTTP{
		client:       client.HTTPClient,
		streamClient: client.StreamClient,
		maxBodyBytes: config.MaxResponseBodyBytes,
	}
}

func (t *HTTP) Send(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxBodyBytes)))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       payload,
	}, nil
}

// SendStream opens a streaming exchange. A non-2xx status fails before any
// chunk is yielded, carrying the buffered error body.
func (t *HTTP) SendStream(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := t.streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxBodyBytes)))
		_ = resp.Body.Close()
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	return &Stream{
		StatusCode: resp.StatusCode,
		body:       resp.Body,
		reader:     bufio.NewReader(resp.Body),
		limit:      t.maxBodyBytes,
	}, nil
}

// Stream yields the raw byte chunks of one streaming response, one line per
// call. The caller owns Close.
type Stream struct {
	StatusCode int

	body   io.ReadCloser
	reader *bufio.Reader
	limit  int
	read   int
}

// Next returns the next raw chunk, or io.EOF when the response ends or the
// size limit is reached.
func (s *Stream) Next() ([]byte, error) {
	if s.read >= s.limit {
		return nil, io.EOF
	}
	chunk, err := s.reader.ReadBytes('\n')
	s.read += len(chunk)
	if len(chunk) > 0 {
		// deliver the partial line even when an error follows
		return chunk, nil
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read stream chunk")
	}
	return nil, io.EOF
}

func (s *Stream) Close() error {
	return s.body.Close()
}
