// Package container implements the Request Container: the in-memory,
// mutable representation of one in-flight request/response pair that the
// orchestrator drives through the middleware chain and the backend call.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Phase records how far the Container has moved through the pipeline. It is
// carried as state on the Container rather than modeled via a type
// hierarchy. Build sets RequestPhase; InstallBackendResponse and a
// request-phase Stop set ResponsePhase; BackendPhase is not assigned by this
// package. No Container method reads Phase to pick a header set or body:
// each operation names the side it touches.
type Phase int

const (
	RequestPhase Phase = iota
	BackendPhase
	ResponsePhase
)

const (
	kubewareTimeHeader = "x-kubeware-time"
	backendTimeHeader  = "x-backend-time"
)

// ErrBodyRead is returned by Build when the inbound request body cannot be
// read to completion (e.g. the client aborted mid-body).
var ErrBodyRead = errors.New("container: failed to read request body")

// ErrInvalidUTF8 is returned when a body must be serialized as a UTF-8
// string for an RPC call but contains invalid UTF-8 (spec.md §3 invariant).
var ErrInvalidUTF8 = errors.New("container: body is not valid UTF-8")

// Container is the mutable aggregate of one in-flight request/response
// pair (spec.md §3, §4.A).
type Container struct {
	RequestID string // correlation ID for log lines spanning this request
	Method    string
	URI       string // path and query, as received
	Proto     string // e.g. "HTTP/1.1", "HTTP/2.0"
	Phase     Phase

	RequestHeaders  *Headers
	ResponseHeaders *Headers
	RequestBody     []byte
	ResponseBody    []byte

	StatusCode *int

	start          time.Time
	backendElapsed time.Duration
	backendReached bool
}

// Build absorbs method, URI, protocol version, request headers, and the
// full request body from an inbound HTTP request (spec.md §4.A "Build from
// HTTP request"). The body is read in its entirety before returning.
func Build(r *http.Request) (*Container, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyRead, err)
	}

	headers := NewHeaders()
	for name, values := range r.Header {
		for _, v := range values {
			headers.Append(name, v)
		}
	}

	return &Container{
		RequestID:       uuid.New().String(),
		Method:          r.Method,
		URI:             r.URL.RequestURI(),
		Proto:           r.Proto,
		Phase:           RequestPhase,
		RequestHeaders:  headers,
		ResponseHeaders: NewHeaders(),
		RequestBody:     body,
		ResponseBody:    nil,
		start:           time.Now(),
	}, nil
}

// SetBackendElapsed records the backend call's wall-clock duration.
func (c *Container) SetBackendElapsed(d time.Duration) { c.backendElapsed = d }

// MarkTerminalError clears the backend-reached flag so WriteResponse omits
// x-backend-time, regardless of whether the backend call already happened.
// A terminal error raised by a response-phase middleware after a successful
// backend call must still suppress the header (spec.md §4.E, §8 invariant 2).
func (c *Container) MarkTerminalError() { c.backendReached = false }

// InstallBackendResponse overwrites response headers, status code, and
// response body from the backend's HTTP response (spec.md §4.A).
func (c *Container) InstallBackendResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBodyRead, err)
	}

	headers := NewHeaders()
	for name, values := range resp.Header {
		for _, v := range values {
			headers.Append(name, v)
		}
	}

	status := resp.StatusCode
	c.ResponseHeaders = headers
	c.ResponseBody = body
	c.StatusCode = &status
	c.Phase = ResponsePhase
	c.backendReached = true

	return nil
}

// ApplyRequestOutcome applies a Success or Stop outcome from a request-phase
// middleware call (spec.md §4.A "Apply request-phase outcome(stop_flag)").
// Continue outcomes must not be passed here; the caller skips the call
// entirely per spec.md §4.E.
func (c *Container) ApplyRequestOutcome(o Outcome, stop bool) {
	for _, name := range o.RemovedHeaders {
		c.RequestHeaders.Remove(name)
	}

	if stop {
		for _, h := range o.AddedHeaders {
			c.ResponseHeaders.Append(h.Name, h.Value)
		}
	} else {
		for _, h := range o.AddedHeaders {
			c.RequestHeaders.Set(h.Name, h.Value)
		}
	}

	if o.StatusCode != nil {
		sc := *o.StatusCode
		c.StatusCode = &sc
	}

	switch {
	case stop && o.Body != nil:
		c.ResponseBody = []byte(*o.Body)
	case stop && o.Body == nil:
		c.ResponseBody = []byte{}
	case !stop && o.Body != nil:
		c.RequestBody = []byte(*o.Body)
	}

	if stop {
		if o.StatusCode == nil {
			sc := http.StatusInternalServerError
			c.StatusCode = &sc
		}
		c.Phase = ResponsePhase
	}
}

// ApplyResponseOutcome applies a Success or Stop outcome from a
// response-phase middleware call (spec.md §4.A "Apply response-phase
// outcome(stop_flag)"). Added headers always go to the response side;
// they are appended (not overwritten) to preserve header multiplicity
// (spec.md §9 Open Question resolution).
func (c *Container) ApplyResponseOutcome(o Outcome, stop bool) {
	for _, name := range o.RemovedHeaders {
		c.ResponseHeaders.Remove(name)
	}
	for _, h := range o.AddedHeaders {
		c.ResponseHeaders.Append(h.Name, h.Value)
	}

	if o.StatusCode != nil {
		sc := *o.StatusCode
		c.StatusCode = &sc
	} else if stop {
		sc := http.StatusInternalServerError
		c.StatusCode = &sc
	}

	if o.Body != nil {
		c.ResponseBody = []byte(*o.Body)
	} else if stop {
		c.ResponseBody = []byte{}
	}
}

// RequestPhaseCall serializes the Container for the handle_request RPC
// (spec.md §6 RequestRequest). Fails with ErrInvalidUTF8 if the request
// body cannot be represented as a UTF-8 string.
func (c *Container) RequestPhaseCall() (method, uri string, headers []HeaderField, body string, err error) {
	if !utf8.Valid(c.RequestBody) {
		return "", "", nil, "", ErrInvalidUTF8
	}
	return c.Method, c.URI, c.RequestHeaders.Fields(), string(c.RequestBody), nil
}

// ResponsePhaseCall serializes the Container for the handle_response RPC
// (spec.md §6 ResponseRequest).
func (c *Container) ResponsePhaseCall() (method, uri string, reqHeaders, respHeaders []HeaderField, reqBody, respBody string, err error) {
	if !utf8.Valid(c.RequestBody) || !utf8.Valid(c.ResponseBody) {
		return "", "", nil, nil, "", "", ErrInvalidUTF8
	}
	return c.Method, c.URI, c.RequestHeaders.Fields(), c.ResponseHeaders.Fields(), string(c.RequestBody), string(c.ResponseBody), nil
}

// BackendRequest serializes the Container into an outbound HTTP request for
// the backend (spec.md §4.A "Serialize to outbound backend HTTP request").
// baseURL is the configured backend base URL; the original path-and-query
// is appended (spec.md §9: fixed to preserve the query string).
func (c *Container) BackendRequest(baseURL string) (*http.Request, error) {
	req, err := http.NewRequest(c.Method, baseURL+c.URI, bytes.NewReader(c.RequestBody))
	if err != nil {
		return nil, err
	}

	for _, f := range c.RequestHeaders.Fields() {
		req.Header.Add(f.Name, f.Value)
	}
	req.Header.Del("Content-Length")
	req.ContentLength = int64(len(c.RequestBody))

	return req, nil
}

// WriteResponse serializes the Container into the outbound HTTP response,
// stamping the synthetic timing headers (spec.md §4.A "Serialize to
// outbound HTTP response").
func (c *Container) WriteResponse(w http.ResponseWriter) {
	header := w.Header()
	for _, f := range c.ResponseHeaders.Fields() {
		header.Add(f.Name, f.Value)
	}
	header.Del("Content-Length")

	header.Set(kubewareTimeHeader, fmt.Sprintf("%d", time.Since(c.start).Milliseconds()))
	if c.backendReached {
		header.Set(backendTimeHeader, fmt.Sprintf("%d", c.backendElapsed.Milliseconds()))
	}

	status := http.StatusInternalServerError
	if c.StatusCode != nil {
		status = *c.StatusCode
	}

	w.WriteHeader(status)
	if len(c.ResponseBody) > 0 {
		_, _ = w.Write(c.ResponseBody)
	}
}

// Elapsed returns the time since the Container was created.
func (c *Container) Elapsed() time.Duration { return time.Since(c.start) }
