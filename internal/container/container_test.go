package container

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCapturesRequestState(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders?id=1", strings.NewReader("payload"))
	req.Header.Add("X-Trace", "a")
	req.Header.Add("X-Trace", "b")

	cont, err := Build(req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, cont.Method)
	assert.Equal(t, "/orders?id=1", cont.URI)
	assert.Equal(t, RequestPhase, cont.Phase)
	assert.Equal(t, []byte("payload"), cont.RequestBody)
	assert.NotEmpty(t, cont.RequestID)
	assert.Equal(t, []string{"a", "b"}, cont.RequestHeaders.Values("x-trace"))
}

func TestBuildAssignsDistinctRequestIDs(t *testing.T) {
	req1, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))
	req2, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, req1.RequestID, req2.RequestID)
}

func TestApplyRequestOutcomeSuccessMutatesRequestSide(t *testing.T) {
	cont, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))
	cont.RequestHeaders.Set("authorization", "old")

	body := "rewritten"
	cont.ApplyRequestOutcome(Outcome{
		AddedHeaders:   []HeaderField{{Name: "authorization", Value: "new"}},
		RemovedHeaders: []string{"x-stale"},
		Body:           &body,
	}, false)

	v, ok := cont.RequestHeaders.Get("authorization")
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, []byte("rewritten"), cont.RequestBody)
	assert.Equal(t, RequestPhase, cont.Phase, "a non-stop outcome must not advance the phase")
}

func TestApplyRequestOutcomeStopSynthesizesResponse(t *testing.T) {
	cont, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))

	body := "denied"
	status := http.StatusForbidden
	cont.ApplyRequestOutcome(Outcome{
		AddedHeaders: []HeaderField{{Name: "x-reason", Value: "blocked"}},
		Body:         &body,
		StatusCode:   &status,
	}, true)

	require.NotNil(t, cont.StatusCode)
	assert.Equal(t, http.StatusForbidden, *cont.StatusCode)
	assert.Equal(t, []byte("denied"), cont.ResponseBody)
	assert.Equal(t, ResponsePhase, cont.Phase)
	v, ok := cont.ResponseHeaders.Get("x-reason")
	require.True(t, ok)
	assert.Equal(t, "blocked", v)
}

func TestApplyRequestOutcomeStopDefaultsStatusCode(t *testing.T) {
	cont, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))
	cont.ApplyRequestOutcome(Outcome{}, true)

	require.NotNil(t, cont.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, *cont.StatusCode)
	assert.Equal(t, []byte{}, cont.ResponseBody)
}

func TestApplyResponseOutcomeAppendsAddedHeaders(t *testing.T) {
	cont, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))
	cont.ResponseHeaders.Set("set-cookie", "first=1")

	cont.ApplyResponseOutcome(Outcome{
		AddedHeaders: []HeaderField{{Name: "set-cookie", Value: "second=2"}},
	}, false)

	assert.Equal(t, []string{"first=1", "second=2"}, cont.ResponseHeaders.Values("set-cookie"))
}

func TestInstallBackendResponseMarksBackendReached(t *testing.T) {
	cont, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("hello")),
	}
	require.NoError(t, cont.InstallBackendResponse(resp))

	recorder := httptest.NewRecorder()
	cont.WriteResponse(recorder)

	assert.NotEmpty(t, recorder.Header().Get("x-backend-time"))
	assert.NotEmpty(t, recorder.Header().Get("x-kubeware-time"))
}

func TestWriteResponseOmitsBackendTimeWhenBackendNeverReached(t *testing.T) {
	cont, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))
	statusCode := http.StatusServiceUnavailable
	cont.StatusCode = &statusCode
	cont.ResponseBody = []byte("Service Unavailable")

	recorder := httptest.NewRecorder()
	cont.WriteResponse(recorder)

	assert.Empty(t, recorder.Header().Get("x-backend-time"))
	assert.NotEmpty(t, recorder.Header().Get("x-kubeware-time"))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestRequestPhaseCallRejectsInvalidUTF8(t *testing.T) {
	cont, _ := Build(httptest.NewRequest(http.MethodGet, "/", nil))
	cont.RequestBody = []byte{0xff, 0xfe}

	_, _, _, _, err := cont.RequestPhaseCall()
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestBackendRequestPreservesPathAndQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/search?q=go&limit=5", nil)
	cont, _ := Build(req)

	out, err := cont.BackendRequest("http://backend.internal")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.internal/search?q=go&limit=5", out.URL.String())
}
