package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gedu17/kubeware/internal/middleware"
)

// ReadinessGate is the per-connection hook invoked once per inbound
// connection, before the Orchestrator handles the first request on it
// (spec.md §4.D). It holds the single shared mutable piece of state in the
// whole system: the current Endpoint Registry snapshot, published by
// atomic pointer swap so reads from in-flight requests are wait-free
// (spec.md §5).
type ReadinessGate struct {
	current atomic.Pointer[middleware.Registry]
	mu      sync.Mutex
}

// NewReadinessGate wraps an initial Registry snapshot.
func NewReadinessGate(initial *middleware.Registry) *ReadinessGate {
	g := &ReadinessGate{}
	g.current.Store(initial)
	return g
}

// Registry returns the current Registry snapshot. Callers must use only
// this snapshot for the lifetime of the request they're handling
// (spec.md §5 "Reads are wait-free").
func (g *ReadinessGate) Registry() *middleware.Registry { return g.current.Load() }

// OnConnState is wired as an http.Server's ConnState hook. It fires the
// readiness check exactly once per accepted connection, on the transition
// to http.StateNew, before any request on that connection reaches the
// handler — the Go-native equivalent of the reference's
// tower::Service::poll_ready (spec.md §4.D, §5).
func (g *ReadinessGate) OnConnState(_ net.Conn, state http.ConnState) {
	if state != http.StateNew {
		return
	}
	g.tryReconnect(context.Background())
}

// tryReconnect implements spec.md §4.D's three-step contract: acquire a
// try-lock (never block the data path on contention), skip if nothing is
// unresolved, otherwise recompute and atomically publish a fresh Registry.
func (g *ReadinessGate) tryReconnect(ctx context.Context) {
	if !g.mu.TryLock() {
		slog.WarnContext(ctx, "readiness gate contended, skipping reconnect attempt")
		return
	}
	defer g.mu.Unlock()

	reg := g.current.Load()
	if !reg.HasUnresolved() {
		return
	}

	next := reg.EnsureConnected(ctx)
	g.current.Store(next)
}
