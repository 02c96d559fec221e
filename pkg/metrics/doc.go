// Package metrics exposes Prometheus collectors for the stub server.
//
// A Metrics value owns its own prometheus.Registry so that several servers,
// or tests, can run in one process. All recording methods are safe to call
// on a nil *Metrics, which records nothing.
//
// # Collectors
//
//   - stubd_requests_total: stub portal requests (labels: method, status)
//   - stubd_request_duration_seconds: stub portal latency (labels: method)
//   - stubd_match_outcomes_total: resolved outcomes (labels: outcome)
//   - stubd_stub_hits_total: hits per stub (labels: resource_id)
//   - stubd_recordings_total: recording attempts (labels: result)
//   - stubd_proxy_requests_total: proxied requests (labels: proxy, result)
//   - stubd_admin_requests_total: admin portal requests (labels: method, status)
//   - stubd_stubs_configured: number of loaded stubs
//
// Go runtime and process collectors are registered as well.
//
// # Usage
//
//	m := metrics.New()
//	m.Outcome("ok")
//	mux.Handle("GET /metrics", m.Handler())
package metrics
