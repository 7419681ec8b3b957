// Package admin implements the loopback-only introspection listener
// (SPEC_FULL.md §4.K), adapted from the teacher's internal/admin/server.go.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gedu17/kubeware/internal/config"
)

// Server is the admin HTTP server.
type Server struct {
	cfg        *config.AdminConfig
	httpServer *http.Server
}

// NewServer builds the admin HTTP server, wiring the registry dump
// handler and a Prometheus /metrics handler behind the IP allowlist.
func NewServer(cfg *config.AdminConfig, source RegistrySource, gatherer *prometheus.Registry) *Server {
	mux := http.NewServeMux()

	mux.Handle("/registry_dump", ipWhitelistMiddleware(cfg.AllowedIPs, NewRegistryDumpHandler(source)))
	mux.Handle("/metrics", ipWhitelistMiddleware(cfg.AllowedIPs, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	return &Server{cfg: cfg, httpServer: httpServer}
}

// Start runs the admin HTTP server until Stop is called or it fails.
func (s *Server) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "starting admin listener", "addr", s.cfg.Addr, "allowed_ips", s.cfg.AllowedIPs)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the admin HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	slog.InfoContext(ctx, "stopping admin listener")
	return s.httpServer.Shutdown(ctx)
}

func ipWhitelistMiddleware(allowedIPs []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !isIPAllowed(clientIP, allowedIPs) {
			slog.Warn("blocked admin request from unauthorized IP", "client_ip", clientIP, "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientIP derives the client IP solely from the connection's
// RemoteAddr. This listener is loopback-only and never sits behind a
// reverse proxy (SPEC_FULL.md §4.K), so X-Forwarded-For/X-Real-IP are
// never trusted: either header would let any caller spoof an allowed IP
// and bypass the allowlist below.
func extractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isIPAllowed compares clientIP against allowedIPs by parsed address, not
// raw string, so equivalent IPv6 representations (e.g. "::1" vs the
// RFC 5952 long form) match. Falls back to a literal compare for either
// side that fails to parse.
func isIPAllowed(clientIP string, allowedIPs []string) bool {
	client := net.ParseIP(clientIP)
	for _, allowed := range allowedIPs {
		if client != nil {
			if parsed := net.ParseIP(allowed); parsed != nil {
				if client.Equal(parsed) {
					return true
				}
				continue
			}
		}
		if clientIP == allowed {
			return true
		}
	}
	return false
}
