package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/metrics"
	"github.com/getmockd/stubd/pkg/stub"
)

func newTestHandler(t *testing.T, lifecycles []*stub.Lifecycle, opts ...HandlerOption) (*Handler, *storage.Repository) {
	t.Helper()
	sel, repo := newTestSelector(t, lifecycles)
	return NewHandler(sel, opts...), repo
}

func TestHandler_ServeHTTP(t *testing.T) {
	item := stub.NewResponse(200, `{"id":"<% url.1 %>"}`)
	item.Headers = map[string]string{"content-type": "application/json"}

	created := stub.NewResponse(201, "created")
	postLC := &stub.Lifecycle{
		Request: &stub.Request{
			URL:     "/orders",
			Methods: []string{"POST"},
			Headers: map[string]string{"content-type": "application/json"},
			Post:    `{"qty":1}`,
		},
		Responses: []*stub.Response{created},
	}

	queryLC := single("/search", stub.NewResponse(200, "found"))
	queryLC.Request.Query = map[string]string{"type_name": `["id","uuid"]`}

	secure := single("/secure", stub.NewResponse(200, "welcome"))
	secure.Request.Headers = map[string]string{stub.HeaderAuthorizationBearer: "Bearer t0ken"}

	h, _ := newTestHandler(t, []*stub.Lifecycle{
		single(`^/item/(\d+)$`, item),
		postLC,
		queryLC,
		secure,
	})

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		headers    map[string]string
		wantStatus int
		wantBody   string
		wantHeader map[string]string
	}{
		{
			name:       "templated body",
			method:     http.MethodGet,
			target:     "/item/1",
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"1"}`,
			wantHeader: map[string]string{"Content-Type": "application/json", "X-Stubd-Resource-Id": "0"},
		},
		{
			name:       "post with JSON body",
			method:     http.MethodPost,
			target:     "/orders",
			body:       `{ "qty": 1 }`,
			headers:    map[string]string{"Content-Type": "application/json"},
			wantStatus: http.StatusCreated,
			wantBody:   "created",
			wantHeader: map[string]string{"X-Stubd-Resource-Id": "1"},
		},
		{
			name:       "bracketed query value",
			method:     http.MethodGet,
			target:     "/search?type_name=%5B%22id%22%2C%22uuid%22%5D",
			wantStatus: http.StatusOK,
			wantBody:   "found",
		},
		{
			name:       "method mismatch",
			method:     http.MethodDelete,
			target:     "/item/1",
			wantStatus: http.StatusNotFound,
			wantBody:   "(404) Nothing found for DELETE request at URI /item/1",
		},
		{
			name:       "missing authorization",
			method:     http.MethodGet,
			target:     "/secure",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "You are not authorized to view this page without supplied 'Authorization' HTTP header",
		},
		{
			name:       "wrong bearer token",
			method:     http.MethodGet,
			target:     "/secure",
			headers:    map[string]string{"Authorization": "Bearer nope"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized with supplied 'authorized' header value: 'Bearer nope'",
		},
		{
			name:       "bearer token",
			method:     http.MethodGet,
			target:     "/secure",
			headers:    map[string]string{"Authorization": "Bearer t0ken"},
			wantStatus: http.StatusOK,
			wantBody:   "welcome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNotFound {
				assert.True(t, strings.HasPrefix(rec.Body.String(), tt.wantBody), rec.Body.String())
			} else {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			for k, v := range tt.wantHeader {
				assert.Equal(t, v, rec.Header().Get(k), k)
			}
		})
	}
}

func TestHandler_InvalidLatency(t *testing.T) {
	resp := stub.NewResponse(200, "slow")
	resp.Latency = "soon"
	h, _ := newTestHandler(t, []*stub.Lifecycle{single("/slow", resp)})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid latency")
}

func TestHandler_Latency(t *testing.T) {
	resp := stub.NewResponse(200, "late")
	resp.Latency = "50"
	h, _ := newTestHandler(t, []*stub.Lifecycle{single("/late", resp)})

	start := time.Now()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/late", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "late", rec.Body.String())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestHandler_LatencyCancelled(t *testing.T) {
	resp := stub.NewResponse(200, "never")
	resp.Latency = "10000"
	h, _ := newTestHandler(t, []*stub.Lifecycle{single("/late", resp)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/late", nil).WithContext(ctx))

	assert.Empty(t, rec.Body.String())
}

func TestHandler_Redirect(t *testing.T) {
	resp := stub.NewResponse(302, "moved")
	resp.Headers = map[string]string{"location": "/new"}
	h, _ := newTestHandler(t, []*stub.Lifecycle{single("/old", resp)})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/old", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/new", rec.Header().Get("Location"))
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Equal(t, "0", rec.Header().Get(stub.HeaderResourceID))
	assert.Equal(t, "moved", rec.Body.String())
}

func TestHandler_Sequence(t *testing.T) {
	lc := &stub.Lifecycle{
		Request: &stub.Request{URL: "/seq", Methods: []string{"GET"}},
		Responses: []*stub.Response{
			stub.NewResponse(200, "first"),
			stub.NewResponse(503, "second"),
		},
	}
	h, _ := newTestHandler(t, []*stub.Lifecycle{lc})

	var got []int
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/seq", nil))
		got = append(got, rec.Code)
	}

	assert.Equal(t, []int{200, 503, 200}, got)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	h, _ := newTestHandler(t, []*stub.Lifecycle{single("/x", stub.NewResponse(200, "x"))}, WithMaxBodySize(4))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("too large")))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_Proxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", r.URL.RequestURI())
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, "from upstream")
	}))
	defer upstream.Close()

	h, repo := newTestHandler(t, nil)
	require.NoError(t, repo.PutProxyConfig(&stub.ProxyConfig{
		Properties: map[string]string{"endpoint": upstream.URL},
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything?q=1", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "from upstream", rec.Body.String())
	assert.Equal(t, "/anything?q=1", rec.Header().Get("X-Upstream"))
	assert.NotEmpty(t, rec.Header().Get(stub.HeaderProxyRequestUUID))
}

func TestNewStubRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "http://stubs.local/path/to?a=1&b=2&a=3", nil)
	req.Header.Add("X-Multi", "one")
	req.Header.Add("X-Multi", "two")

	got := NewStubRequest(req, []byte("payload"))

	assert.Equal(t, "/path/to", got.URL)
	assert.Equal(t, []string{http.MethodPut}, got.Methods)
	assert.Equal(t, "one,two", got.Headers["x-multi"])
	assert.Equal(t, "stubs.local", got.Headers["host"])
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, got.Query)
	assert.Equal(t, "payload", got.Post)
	assert.Equal(t, "/path/to?a=1&b=2&a=3", got.FullURL())
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New()
	h, _ := newTestHandler(t, []*stub.Lifecycle{single("/x", stub.NewResponse(204, ""))})
	wrapped := MetricsMiddleware(m, h)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "stubd_requests_total" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, float64(1), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)

	assert.Same(t, h, MetricsMiddleware(nil, h))
}
