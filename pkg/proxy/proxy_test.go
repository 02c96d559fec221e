package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubd/pkg/metrics"
	"github.com/getmockd/stubd/pkg/stub"
)

type upstreamCall struct {
	method  string
	uri     string
	body    string
	headers http.Header
}

func newUpstream(t *testing.T, calls *[]upstreamCall) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*calls = append(*calls, upstreamCall{
			method:  r.Method,
			uri:     r.URL.RequestURI(),
			body:    string(b),
			headers: r.Header.Clone(),
		})
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Connection", "close")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("from upstream"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sequentialUUIDs() func() string {
	ids := []string{"req-1", "resp-1", "req-2", "resp-2"}
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestProxy_ServeProxy(t *testing.T) {
	tests := []struct {
		name      string
		strategy  stub.ProxyStrategy
		wantAdded string
	}{
		{name: "as-is leaves headers alone", strategy: stub.ProxyAsIs, wantAdded: ""},
		{name: "additive adds configured headers", strategy: stub.ProxyAdditive, wantAdded: "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []upstreamCall
			upstream := newUpstream(t, &calls)

			cfg := &stub.ProxyConfig{
				UUID:       "default",
				Strategy:   tt.strategy,
				Properties: map[string]string{"endpoint": upstream.URL + "/"},
				Headers:    map[string]string{"x-added": "yes"},
			}
			p := New()
			p.newUUID = sequentialUUIDs()

			req := httptest.NewRequest(http.MethodPost, "/orders?id=7", strings.NewReader("payload"))
			req.Header.Set("X-Trace", "abc")
			req.Header.Set(stub.HeaderProxyConfig, "default")
			rec := httptest.NewRecorder()

			status := p.ServeProxy(rec, req, []byte("payload"), cfg)

			assert.Equal(t, http.StatusTeapot, status)
			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.Equal(t, "from upstream", rec.Body.String())
			assert.Empty(t, rec.Header().Get("Connection"))
			assert.Equal(t, "req-1", rec.Header().Get(stub.HeaderProxyRequestUUID))
			assert.Equal(t, "resp-1", rec.Header().Get(stub.HeaderProxyResponseUUID))

			require.Len(t, calls, 1)
			call := calls[0]
			assert.Equal(t, http.MethodPost, call.method)
			assert.Equal(t, "/orders?id=7", call.uri)
			assert.Equal(t, "payload", call.body)
			assert.Equal(t, "abc", call.headers.Get("X-Trace"))
			assert.Equal(t, "req-1", call.headers.Get(stub.HeaderProxyRequestUUID))
			assert.Empty(t, call.headers.Get(stub.HeaderProxyConfig))
			assert.Equal(t, tt.wantAdded, call.headers.Get("X-Added"))
		})
	}
}

func TestProxy_ServeProxy_TransportError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := upstream.URL
	upstream.Close()

	m := metrics.New()
	p := New(WithMetrics(m))
	cfg := &stub.ProxyConfig{UUID: "default", Properties: map[string]string{"endpoint": endpoint}}

	rec := httptest.NewRecorder()
	status := p.ServeProxy(rec, httptest.NewRequest(http.MethodGet, "/x", nil), nil, cfg)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to proxy GET /x")
}
