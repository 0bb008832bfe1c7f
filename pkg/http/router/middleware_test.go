package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHeartbeat(t *testing.T) {
	h := Heartbeat("healthz")(http.NotFoundHandler())

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ".", rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnforceJSONHandler(t *testing.T) {
	h := EnforceJSONHandler(okHandler)

	testCases := []struct {
		name        string
		method      string
		contentType string
		status      int
	}{
		{name: "get without body", method: http.MethodGet, status: http.StatusOK},
		{name: "json post", method: http.MethodPost, contentType: "application/json; charset=utf-8", status: http.StatusOK},
		{name: "post without content type", method: http.MethodPost, status: http.StatusUnsupportedMediaType},
		{name: "form post", method: http.MethodPost, contentType: "application/x-www-form-urlencoded",
			status: http.StatusUnsupportedMediaType},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/sessions", strings.NewReader(`{}`))
			if tc.method == http.MethodGet {
				req = httptest.NewRequest(tc.method, "/api/sessions", nil)
			}
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			assert.Equal(t, tc.status, serve(h, req).Code)
		})
	}
}

func TestRecoverPanic(t *testing.T) {
	api := NewAPI(zap.NewNop())
	h := api.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestRealIPAndLabels(t *testing.T) {
	var remote, requestID string
	h := RealIP(Labels(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remote = r.RemoteAddr
		requestID = r.Header.Get(requestIDHeader)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 172.16.0.1")
	rec := serve(h, req)

	assert.Equal(t, "10.1.2.3", remote)
	require.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = serve(h, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestIPLimiter(t *testing.T) {
	h := newIPLimiter(1, 2).Handler(okHandler)

	req := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = ip + ":5000"
		return r
	}

	assert.Equal(t, http.StatusOK, serve(h, req("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, req("10.0.0.1")).Code)
	rec := serve(h, req("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(h, req("10.0.0.2")).Code)
}

func TestClientLimitersEvictIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cl := newClientLimiters(time.Minute)
	cl.now = func() time.Time { return now }

	cl.get("a", 1, 1)
	cl.get("b", 1, 1)
	assert.Equal(t, 2, cl.size())

	now = now.Add(2 * time.Minute)
	cl.get("c", 1, 1)
	assert.Equal(t, 1, cl.size())
}
