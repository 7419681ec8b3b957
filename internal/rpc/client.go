package rpc

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	serviceName        = "kubeware.Middleware"
	handleRequestPath  = "/" + serviceName + "/HandleRequest"
	handleResponsePath = "/" + serviceName + "/HandleResponse"
)

// MiddlewareClient is a thin wrapper around a gRPC client connection to one
// configured middleware, exposing the two unary RPCs from spec.md §6. The
// underlying *grpc.ClientConn is itself safe for concurrent use and cheap
// to share, matching spec.md §5 ("thread-safe... may be cloned cheaply").
type MiddlewareClient struct {
	conn *grpc.ClientConn
}

// Dial opens a gRPC connection to a middleware URL. It does not block
// waiting for the connection to become ready: spec.md §4.C requires
// Registry.Insert to never fail the caller, so readiness is discovered on
// the first call instead, exactly like the connection-per-endpoint model
// the teacher dials up front at startup.
func Dial(ctx context.Context, rawURL string) (*MiddlewareClient, error) {
	conn, err := grpc.NewClient(dialTarget(rawURL), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", rawURL, err)
	}
	return &MiddlewareClient{conn: conn}, nil
}

// dialTarget converts a configured middleware URL (spec.md §6:
// "http://host:port") into the host:port form grpc.NewClient expects as a
// dial target. A URL with no scheme is assumed to already be a bare
// host:port and is passed through unchanged.
func dialTarget(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}

// Close releases the underlying connection.
func (c *MiddlewareClient) Close() error { return c.conn.Close() }

// HandleRequest issues the request-phase unary RPC under the given
// per-call timeout, attaching the grpc-timeout metadata header the spec
// requires (spec.md §4.E, §6).
func (c *MiddlewareClient) HandleRequest(ctx context.Context, timeout time.Duration, req RequestRequest) (RequestResponse, error) {
	var resp RequestResponse
	err := c.invoke(ctx, handleRequestPath, timeout, &req, &resp)
	return resp, err
}

// HandleResponse issues the response-phase unary RPC under the given
// per-call timeout.
func (c *MiddlewareClient) HandleResponse(ctx context.Context, timeout time.Duration, req ResponseRequest) (ResponseResponse, error) {
	var resp ResponseResponse
	err := c.invoke(ctx, handleResponsePath, timeout, &req, &resp)
	return resp, err
}

func (c *MiddlewareClient) invoke(ctx context.Context, method string, timeout time.Duration, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx, "grpc-timeout", fmt.Sprintf("%dm", timeout.Milliseconds()))

	return c.conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(codecName))
}
