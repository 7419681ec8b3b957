package middleware

import (
	"context"
	"log/slog"

	"github.com/gedu17/kubeware/internal/rpc"
)

// Dialer opens a gRPC connection to a middleware URL. It is injected so
// tests can substitute an in-process dialer instead of real network I/O.
type Dialer func(ctx context.Context, url string) (*rpc.MiddlewareClient, error)

// Registry is the ordered collection of Middleware Endpoints plus a
// reference to the original configuration needed to reconstruct endpoints
// on reconnect (spec.md §4.C). A Registry is never mutated in place: the
// Readiness Gate replaces it wholesale so in-flight requests can keep
// using their own immutable snapshot (spec.md §5).
type Registry struct {
	entries []*Endpoint
	configs []Config
	dial    Dialer
}

// NewRegistry builds an empty Registry bound to the given dialer and
// config set. Use Insert to populate it at startup.
func NewRegistry(configs []Config, dial Dialer) *Registry {
	return &Registry{configs: configs, dial: dial}
}

// All returns every configured endpoint, in configuration order.
func (r *Registry) All() []*Endpoint { return r.entries }

// RequestPhaseEndpoints returns the ordered sub-sequence of entries with
// the request flag set (spec.md §4.C).
func (r *Registry) RequestPhaseEndpoints() []*Endpoint {
	return filter(r.entries, (*Endpoint).RequestEnabled)
}

// ResponsePhaseEndpoints returns the ordered sub-sequence of entries with
// the response flag set (spec.md §4.C).
func (r *Registry) ResponsePhaseEndpoints() []*Endpoint {
	return filter(r.entries, (*Endpoint).ResponseEnabled)
}

func filter(entries []*Endpoint, keep func(*Endpoint) bool) []*Endpoint {
	out := make([]*Endpoint, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Insert constructs one Endpoint from cfg, attempting to dial its URL. On
// dial failure it logs a warning and appends the Endpoint with an absent
// handle; it never returns an error (spec.md §4.C).
func (r *Registry) Insert(ctx context.Context, cfg Config) {
	entry := build(cfg, func(url string) (*rpc.MiddlewareClient, error) {
		return r.dial(ctx, url)
	})
	if entry.Client() == nil {
		slog.WarnContext(ctx, "middleware endpoint unresolved at insert", "url", cfg.URL)
	}
	r.entries = append(r.entries, entry)
}

// EnsureConnected returns a new Registry: endpoints with a live handle are
// copied as-is, endpoints with an absent handle are looked up by URL in the
// original config and re-dialed via Insert (spec.md §4.C). The returned
// Registry is a fresh value; callers swap it in atomically.
func (r *Registry) EnsureConnected(ctx context.Context) *Registry {
	next := NewRegistry(r.configs, r.dial)

	for _, entry := range r.entries {
		if entry.Client() != nil {
			next.entries = append(next.entries, entry)
			continue
		}

		cfg, ok := findConfig(r.configs, entry.URL())
		if !ok {
			// Configuration disappeared from under us; keep the
			// endpoint unresolved rather than dropping it.
			next.entries = append(next.entries, entry)
			continue
		}

		slog.DebugContext(ctx, "attempting middleware reconnect", "url", cfg.URL)
		next.Insert(ctx, cfg)
	}

	return next
}

// HasUnresolved reports whether any endpoint currently has an absent
// handle, the signal the Readiness Gate uses to decide whether a
// reconnect attempt is worth making (spec.md §4.D).
func (r *Registry) HasUnresolved() bool {
	for _, e := range r.entries {
		if e.Client() == nil {
			return true
		}
	}
	return false
}

func findConfig(configs []Config, url string) (Config, bool) {
	for _, c := range configs {
		if c.URL == url {
			return c, true
		}
	}
	return Config{}, false
}
