package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Outcome("ok")
	m.Outcome("ok")
	m.Outcome("not_found")
	m.Hit(3)
	m.Recording("error")
	m.Proxy("default", "ok")
	m.SetStubs(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomesTotal.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hitsTotal.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordingsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.proxyRequestsTotal.WithLabelValues("default", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.stubsConfigured))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, http.StatusOK, 15*time.Millisecond)
	m.AdminRequest(http.MethodPost, http.StatusCreated)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `stubd_requests_total{method="GET",status="200"} 1`)
	assert.Contains(t, string(body), `stubd_admin_requests_total{method="POST",status="201"} 1`)
	assert.Contains(t, string(body), "stubd_request_duration_seconds_bucket")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Outcome("ok")
		m.Hit(1)
		m.Recording("ok")
		m.Proxy("default", "error")
		m.ObserveRequest("GET", 200, time.Second)
		m.AdminRequest("GET", 200)
		m.SetStubs(1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
