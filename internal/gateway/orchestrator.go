// Package gateway implements the Request Orchestrator and Readiness Gate
// (spec.md §4.D, §4.E): the state machine that drives one inbound request
// through the request-phase middleware chain, the backend call, and the
// response-phase middleware chain, enforcing per-hop deadlines and mapping
// every failure onto a distinct HTTP status.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gedu17/kubeware/internal/container"
	"github.com/gedu17/kubeware/internal/middleware"
	"github.com/gedu17/kubeware/internal/rpc"
)

// BackendDoer is the narrow interface the Orchestrator needs from an
// outbound HTTP client, satisfied by *http.Client (see internal/backend).
type BackendDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Metrics is the narrow observability sink the Orchestrator reports to.
// Implementations live in internal/metrics; nil is a valid no-op value.
type Metrics interface {
	ObservePhase(phase string, d time.Duration)
	IncRequest(status int)
	IncMiddlewareFailure(url, kind string)
}

// Orchestrator is the Request Orchestrator component (spec.md §4.E). It
// implements http.Handler directly so it can be installed as an
// http.Server's Handler.
type Orchestrator struct {
	Gate           *ReadinessGate
	Backend        BackendDoer
	BackendURL     string
	BackendTimeout time.Duration
	Metrics        Metrics
}

const (
	bodyBadGateway         = "Bad Gateway"
	bodyServiceUnavailable = "Service Unavailable"
	bodyGatewayTimeout     = "Gateway Timeout"
	bodyInternalError      = "Internal server error"
)

// ServeHTTP drives one request through S0 (request-phase chain) -> S1
// (backend call) -> S2 (response-phase chain) -> S3 (write response),
// exactly as spec.md §4.E specifies.
func (o *Orchestrator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	cont, err := container.Build(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build request container",
			"error", err, "elapsed_ms", time.Since(start).Milliseconds(), "kind", "internal")
		o.writeRaw(w, start, http.StatusInternalServerError, bodyInternalError)
		return
	}

	reg := o.Gate.Registry()

	if !o.runRequestPhase(r.Context(), cont, reg) {
		o.finish(w, cont)
		return
	}

	if !o.callBackend(r.Context(), cont) {
		o.finish(w, cont)
		return
	}

	if !o.runResponsePhase(r.Context(), cont, reg) {
		o.finish(w, cont)
		return
	}

	o.finish(w, cont)
}

// finish writes the final response and records metrics, reading the final
// status off the Container: every path (success or terminal error)
// stamps it there before reaching finish.
func (o *Orchestrator) finish(w http.ResponseWriter, cont *container.Container) {
	cont.WriteResponse(w)

	final := http.StatusInternalServerError
	if cont.StatusCode != nil {
		final = *cont.StatusCode
	}
	if o.Metrics != nil {
		o.Metrics.IncRequest(final)
	}
}

// runRequestPhase drives S0: the request-phase middleware chain.
func (o *Orchestrator) runRequestPhase(ctx context.Context, cont *container.Container, reg *middleware.Registry) bool {
	phaseStart := time.Now()
	defer func() { o.observe("request_middleware", phaseStart) }()

	for _, ep := range reg.RequestPhaseEndpoints() {
		if !o.callRequestEndpoint(ctx, cont, ep) {
			return false
		}
		if cont.Phase == container.ResponsePhase {
			// A Stop outcome already transitioned us to S3.
			return false
		}
	}
	return true
}

// callRequestEndpoint issues one request-phase RPC and applies its
// outcome. It returns false if the chain must terminate (either because
// of a failure, or because the middleware issued Stop).
func (o *Orchestrator) callRequestEndpoint(ctx context.Context, cont *container.Container, ep *middleware.Endpoint) bool {
	client := ep.Client()
	if client == nil {
		slog.ErrorContext(ctx, "request-phase endpoint unresolved, failing request",
			"request_id", cont.RequestID, "url", ep.URL(), "elapsed_ms", cont.Elapsed().Milliseconds(), "kind", "unresolved")
		o.terminal(cont, http.StatusServiceUnavailable, bodyServiceUnavailable)
		o.recordFailure(ep.URL(), "unresolved")
		return false
	}

	method, uri, headers, body, err := cont.RequestPhaseCall()
	if err != nil {
		o.terminal(cont, http.StatusInternalServerError, bodyInternalError)
		slog.ErrorContext(ctx, "failed to serialize request-phase call",
			"request_id", cont.RequestID, "url", ep.URL(), "elapsed_ms", cont.Elapsed().Milliseconds(), "kind", "internal", "error", err)
		return false
	}

	callStart := time.Now()
	resp, err := client.HandleRequest(ctx, ep.Timeout(), rpc.RequestRequest{
		Method:  method,
		URI:     uri,
		Headers: toRPCHeaders(headers),
		Body:    body,
	})
	elapsed := time.Since(callStart)

	if err != nil {
		kind := classifyRPCError(err)
		slog.ErrorContext(ctx, "request-phase middleware call failed",
			"request_id", cont.RequestID, "url", ep.URL(), "elapsed_ms", elapsed.Milliseconds(), "kind", kind, "error", err)
		o.terminal(cont, http.StatusServiceUnavailable, bodyServiceUnavailable)
		o.recordFailure(ep.URL(), kind)
		return false
	}

	return applyRequestOutcome(cont, resp)
}

func applyRequestOutcome(cont *container.Container, resp rpc.RequestResponse) bool {
	switch container.StatusFromWire(int32(resp.Status)) {
	case container.StatusSuccess:
		cont.ApplyRequestOutcome(toOutcome(resp), false)
		return true
	case container.StatusStop:
		cont.ApplyRequestOutcome(toOutcome(resp), true)
		return false
	default: // Continue, and any unknown value defensively treated as Continue.
		return true
	}
}

// callBackend drives S1: the single backend HTTP call.
func (o *Orchestrator) callBackend(ctx context.Context, cont *container.Container) bool {
	phaseStart := time.Now()
	defer func() { o.observe("backend", phaseStart) }()

	req, err := cont.BackendRequest(o.BackendURL)
	if err != nil {
		o.terminal(cont, http.StatusInternalServerError, bodyInternalError)
		slog.ErrorContext(ctx, "failed to build backend request",
			"request_id", cont.RequestID, "elapsed_ms", cont.Elapsed().Milliseconds(), "kind", "internal", "error", err)
		return false
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, o.BackendTimeout)
	defer cancel()

	backendStart := time.Now()
	resp, err := o.Backend.Do(req.WithContext(timeoutCtx))
	if err != nil {
		elapsed := time.Since(backendStart)
		if errors.Is(err, context.DeadlineExceeded) {
			slog.ErrorContext(ctx, "backend call timed out", "request_id", cont.RequestID, "elapsed_ms", elapsed.Milliseconds(), "kind", "backend_timeout", "error", err)
			o.terminal(cont, http.StatusGatewayTimeout, bodyGatewayTimeout)
		} else {
			slog.ErrorContext(ctx, "backend call failed", "request_id", cont.RequestID, "elapsed_ms", elapsed.Milliseconds(), "kind", "backend_transport", "error", err)
			o.terminal(cont, http.StatusBadGateway, bodyBadGateway)
		}
		return false
	}
	defer resp.Body.Close()

	cont.SetBackendElapsed(time.Since(backendStart))

	if err := cont.InstallBackendResponse(resp); err != nil {
		o.terminal(cont, http.StatusInternalServerError, bodyInternalError)
		slog.ErrorContext(ctx, "failed to install backend response",
			"request_id", cont.RequestID, "elapsed_ms", cont.Elapsed().Milliseconds(), "kind", "internal", "error", err)
		return false
	}

	return true
}

// runResponsePhase drives S2: the response-phase middleware chain.
func (o *Orchestrator) runResponsePhase(ctx context.Context, cont *container.Container, reg *middleware.Registry) bool {
	phaseStart := time.Now()
	defer func() { o.observe("response_middleware", phaseStart) }()

	for _, ep := range reg.ResponsePhaseEndpoints() {
		if !o.callResponseEndpoint(ctx, cont, ep) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) callResponseEndpoint(ctx context.Context, cont *container.Container, ep *middleware.Endpoint) bool {
	client := ep.Client()
	if client == nil {
		slog.ErrorContext(ctx, "response-phase endpoint unresolved, failing request",
			"request_id", cont.RequestID, "url", ep.URL(), "elapsed_ms", cont.Elapsed().Milliseconds(), "kind", "unresolved")
		o.terminal(cont, http.StatusServiceUnavailable, bodyServiceUnavailable)
		o.recordFailure(ep.URL(), "unresolved")
		return false
	}

	method, uri, reqHeaders, respHeaders, reqBody, respBody, err := cont.ResponsePhaseCall()
	if err != nil {
		o.terminal(cont, http.StatusInternalServerError, bodyInternalError)
		slog.ErrorContext(ctx, "failed to serialize response-phase call",
			"request_id", cont.RequestID, "url", ep.URL(), "elapsed_ms", cont.Elapsed().Milliseconds(), "kind", "internal", "error", err)
		return false
	}

	callStart := time.Now()
	resp, err := client.HandleResponse(ctx, ep.Timeout(), rpc.ResponseRequest{
		Method:          method,
		URI:             uri,
		RequestHeaders:  toRPCHeaders(reqHeaders),
		ResponseHeaders: toRPCHeaders(respHeaders),
		RequestBody:     reqBody,
		ResponseBody:    respBody,
	})
	elapsed := time.Since(callStart)

	if err != nil {
		kind := classifyRPCError(err)
		slog.ErrorContext(ctx, "response-phase middleware call failed",
			"request_id", cont.RequestID, "url", ep.URL(), "elapsed_ms", elapsed.Milliseconds(), "kind", kind, "error", err)
		o.terminal(cont, http.StatusServiceUnavailable, bodyServiceUnavailable)
		o.recordFailure(ep.URL(), kind)
		return false
	}

	switch container.StatusFromWire(int32(resp.Status)) {
	case container.StatusSuccess:
		cont.ApplyResponseOutcome(toOutcome(resp), false)
		return true
	case container.StatusStop:
		cont.ApplyResponseOutcome(toOutcome(resp), true)
		return false
	default: // Continue discards the outcome payload entirely (spec.md §9).
		return true
	}
}

// terminal stamps the Container so the eventual WriteResponse call emits
// the mapped status and reason-phrase body. It also clears the
// backend-reached flag: a terminal error raised by a response-phase
// middleware, after a successful backend call, must still suppress
// x-backend-time, not just errors raised before/during the backend call
// (spec.md §4.E, §8 invariant 2).
func (o *Orchestrator) terminal(cont *container.Container, statusCode int, body string) {
	sc := statusCode
	cont.StatusCode = &sc
	cont.ResponseBody = []byte(body)
	cont.ResponseHeaders = container.NewHeaders()
	cont.MarkTerminalError()
}

// writeRaw handles the one case where no Container exists yet (the
// inbound body itself failed to read): it stamps x-kubeware-time from a
// raw start time instead of a Container.
func (o *Orchestrator) writeRaw(w http.ResponseWriter, start time.Time, statusCode int, body string) {
	w.Header().Set("x-kubeware-time", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
	if o.Metrics != nil {
		o.Metrics.IncRequest(statusCode)
	}
}

func (o *Orchestrator) observe(phase string, start time.Time) {
	if o.Metrics != nil {
		o.Metrics.ObservePhase(phase, time.Since(start))
	}
}

func (o *Orchestrator) recordFailure(url, kind string) {
	if o.Metrics != nil {
		o.Metrics.IncMiddlewareFailure(url, kind)
	}
}

// classifyRPCError distinguishes a per-endpoint deadline from any other
// transport error; both map to 503 per spec.md §7, but they are logged
// under distinct failure kinds.
func classifyRPCError(err error) string {
	if status.Code(err) == codes.DeadlineExceeded {
		return "timeout"
	}
	return "transport"
}

func toRPCHeaders(fields []container.HeaderField) []rpc.HeaderField {
	out := make([]rpc.HeaderField, len(fields))
	for i, f := range fields {
		out[i] = rpc.HeaderField{Name: f.Name, Value: f.Value}
	}
	return out
}

func toOutcome(resp rpc.RequestResponse) container.Outcome {
	added := make([]container.HeaderField, len(resp.AddedHeaders))
	for i, h := range resp.AddedHeaders {
		added[i] = container.HeaderField{Name: h.Name, Value: h.Value}
	}

	var statusCode *int
	if resp.StatusCode != nil {
		sc := int(*resp.StatusCode)
		statusCode = &sc
	}

	return container.Outcome{
		Status:         container.StatusFromWire(int32(resp.Status)),
		AddedHeaders:   added,
		RemovedHeaders: resp.RemovedHeaders,
		Body:           resp.Body,
		StatusCode:     statusCode,
	}
}
