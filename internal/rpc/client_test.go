package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestDialTargetStripsHTTPScheme(t *testing.T) {
	assert.Equal(t, "auth:9090", dialTarget("http://auth:9090"))
}

func TestDialTargetStripsGRPCScheme(t *testing.T) {
	assert.Equal(t, "auth:9090", dialTarget("grpc://auth:9090"))
}

func TestDialTargetPassesThroughBareHostPort(t *testing.T) {
	assert.Equal(t, "auth:9090", dialTarget("auth:9090"))
}

func TestDialStripsSchemeBeforeConnecting(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	RegisterMiddlewareServer(srv, echoHandler{})
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	client, err := Dial(context.Background(), "http://"+lis.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.HandleRequest(context.Background(), time.Second, RequestRequest{Method: "GET", URI: "/orders", Body: "hi"})
	require.NoError(t, err)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "hi", *resp.Body)
}

type echoHandler struct{}

func (echoHandler) HandleRequest(_ context.Context, req *RequestRequest) (*RequestResponse, error) {
	body := req.Body
	return &RequestResponse{Status: StatusSuccess, Body: &body}, nil
}

func (echoHandler) HandleResponse(_ context.Context, req *ResponseRequest) (*ResponseResponse, error) {
	body := req.ResponseBody
	return &ResponseResponse{Status: StatusSuccess, Body: &body}, nil
}

func TestMiddlewareClientHandleRequestRoundTrip(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	RegisterMiddlewareServer(srv, echoHandler{})
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	client, err := Dial(context.Background(), lis.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.HandleRequest(context.Background(), time.Second, RequestRequest{
		Method: "GET",
		URI:    "/orders",
		Body:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "hello", *resp.Body)
}

func TestMiddlewareClientHandleResponseRoundTrip(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	RegisterMiddlewareServer(srv, echoHandler{})
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	client, err := Dial(context.Background(), lis.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.HandleResponse(context.Background(), time.Second, ResponseRequest{
		Method:       "GET",
		URI:          "/orders",
		ResponseBody: "world",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "world", *resp.Body)
}

func TestMiddlewareClientHonorsPerCallTimeout(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	RegisterMiddlewareServer(srv, slowHandler{delay: 50 * time.Millisecond})
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	client, err := Dial(context.Background(), lis.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.HandleRequest(context.Background(), 5*time.Millisecond, RequestRequest{Method: "GET", URI: "/slow"})
	assert.Error(t, err)
}

type slowHandler struct{ delay time.Duration }

func (h slowHandler) HandleRequest(ctx context.Context, _ *RequestRequest) (*RequestResponse, error) {
	select {
	case <-time.After(h.delay):
	case <-ctx.Done():
	}
	return &RequestResponse{Status: StatusSuccess}, nil
}

func (h slowHandler) HandleResponse(_ context.Context, _ *ResponseRequest) (*ResponseResponse, error) {
	return &ResponseResponse{Status: StatusSuccess}, nil
}
