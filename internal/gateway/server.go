package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gedu17/kubeware/internal/middleware"
)

// NewServer builds the gateway's inbound http.Server: Handler is the
// Orchestrator, ConnState is the Readiness Gate's per-connection hook
// (spec.md §4.D, §4.E).
func NewServer(addr string, gate *ReadinessGate, backend BackendDoer, backendURL string, backendTimeout time.Duration, metrics Metrics) *http.Server {
	orch := &Orchestrator{
		Gate:           gate,
		Backend:        backend,
		BackendURL:     backendURL,
		BackendTimeout: backendTimeout,
		Metrics:        metrics,
	}

	return &http.Server{
		Addr:      addr,
		Handler:   orch,
		ConnState: gate.OnConnState,
	}
}

// BuildRegistry dials every configured middleware up front, mirroring the
// teacher's startup-time connection-per-service dialing (spec.md §4.C).
func BuildRegistry(ctx context.Context, configs []middleware.Config, dial middleware.Dialer) *middleware.Registry {
	reg := middleware.NewRegistry(configs, dial)
	for _, cfg := range configs {
		reg.Insert(ctx, cfg)
	}
	return reg
}
