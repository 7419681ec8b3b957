// Package middleware implements the Middleware Endpoint and Endpoint
// Registry components (spec.md §4.B, §4.C): the configured set of
// out-of-process middlewares the orchestrator calls out to, and the
// reconnect bookkeeping that keeps their gRPC client handles fresh.
package middleware

import (
	"time"

	"github.com/gedu17/kubeware/internal/rpc"
)

// DefaultTimeout is the per-call deadline applied when a middleware entry
// does not configure one (spec.md §4.B).
const DefaultTimeout = 5000 * time.Millisecond

// Config is one [[middleware]] entry from the TOML configuration
// (spec.md §6).
type Config struct {
	URL        string
	TimeoutMs  uint32
	Request    bool
	Response   bool
}

// Endpoint is one configured middleware: its URL, phase-enable flags, the
// per-call deadline, and (if dialing has succeeded) a live RPC client
// handle. Endpoints are immutable once built except for the handle, which
// Registry reconnection replaces wholesale (spec.md §4.B).
type Endpoint struct {
	url      string
	timeout  time.Duration
	request  bool
	response bool
	client   *rpc.MiddlewareClient // nil when the endpoint is unresolved
}

// URL returns the configured middleware URL.
func (e *Endpoint) URL() string { return e.url }

// Timeout returns the per-call deadline.
func (e *Endpoint) Timeout() time.Duration { return e.timeout }

// RequestEnabled reports whether this endpoint participates in the
// request phase.
func (e *Endpoint) RequestEnabled() bool { return e.request }

// ResponseEnabled reports whether this endpoint participates in the
// response phase.
func (e *Endpoint) ResponseEnabled() bool { return e.response }

// Client returns the live RPC client handle, or nil if the endpoint is
// currently unresolved ("absent" in spec.md terms).
func (e *Endpoint) Client() *rpc.MiddlewareClient { return e.client }

func timeoutFrom(ms uint32) time.Duration {
	if ms == 0 {
		return DefaultTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

// build constructs an Endpoint from config, attempting to dial its URL.
// Dialing never fails the build: on error the Endpoint is returned with an
// absent handle, to be retried later by the Readiness Gate
// (spec.md §4.C "insert(config_entry) ... Never fails").
func build(cfg Config, dial func(string) (*rpc.MiddlewareClient, error)) *Endpoint {
	client, err := dial(cfg.URL)
	if err != nil {
		client = nil
	}
	return &Endpoint{
		url:      cfg.URL,
		timeout:  timeoutFrom(cfg.TimeoutMs),
		request:  cfg.Request,
		response: cfg.Response,
		client:   client,
	}
}
