package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gedu17/kubeware/internal/middleware"
	"github.com/gedu17/kubeware/internal/rpc"
)

func TestRegistryDumpHandlerReturnsConnectionState(t *testing.T) {
	cfg := middleware.Config{URL: "grpc://auth:9090", TimeoutMs: 750, Request: true, Response: false}
	dial := func(_ context.Context, _ string) (*rpc.MiddlewareClient, error) {
		return nil, errors.New("dial refused")
	}
	reg := middleware.NewRegistry([]middleware.Config{cfg}, dial)
	reg.Insert(context.Background(), cfg)

	handler := NewRegistryDumpHandler(fakeRegistrySource{reg: reg})

	req := httptest.NewRequest(http.MethodGet, "/registry_dump", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var dump []EndpointDump
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dump))
	require.Len(t, dump, 1)
	assert.Equal(t, "grpc://auth:9090", dump[0].URL)
	assert.True(t, dump[0].Request)
	assert.False(t, dump[0].Response)
	assert.EqualValues(t, 750, dump[0].TimeoutMs)
	assert.False(t, dump[0].Connected)
}

func TestRegistryDumpHandlerRejectsNonGet(t *testing.T) {
	reg := middleware.NewRegistry(nil, nil)
	handler := NewRegistryDumpHandler(fakeRegistrySource{reg: reg})

	req := httptest.NewRequest(http.MethodPost, "/registry_dump", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
