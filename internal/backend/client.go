// Package backend wraps the outbound HTTP client the Orchestrator calls
// the upstream backend through (SPEC_FULL.md §4.H).
package backend

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"

	"golang.org/x/net/http2"

	"github.com/gedu17/kubeware/internal/config"
)

// NewClient builds an *http.Client for the configured backend mode
// (spec.md §6 "Mode selector: {HTTP, HTTP2}"). HTTP2 mode dials cleartext
// h2c, since TLS termination is out of scope (spec.md Non-goals).
func NewClient(version config.BackendVersion) *http.Client {
	if version == config.BackendHTTP2 {
		return &http.Client{
			Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, addr)
				},
			},
		}
	}
	return &http.Client{Transport: http.DefaultTransport}
}
