// Route registration for the Admin API.

package admin

import (
	"net/http"
)

// registerRoutes sets up all API routes. Literal paths win over {id}, so
// /stats and friends never reach the stub handlers.
func (a *API) registerRoutes(mux *http.ServeMux) {
	// Liveness, status and metrics
	mux.HandleFunc("GET /ping", a.handlePing)
	mux.HandleFunc("GET /status", a.handleGetStatus)
	mux.HandleFunc("GET /stats", a.handleGetStats)
	mux.Handle("GET /metrics", a.metrics.Handler())

	// Proxy configs
	mux.HandleFunc("GET /proxy-config", a.handleListProxyConfigs)
	mux.HandleFunc("GET /proxy-config/{uuid}", a.handleGetProxyConfig)
	mux.HandleFunc("PUT /proxy-config/{uuid}", a.handlePutProxyConfig)
	mux.HandleFunc("DELETE /proxy-config/{uuid}", a.handleDeleteProxyConfig)

	// Stubs
	mux.HandleFunc("GET /{$}", a.handleListStubs)
	mux.HandleFunc("POST /{$}", a.handleReplaceStubs)
	mux.HandleFunc("DELETE /{$}", a.handleDeleteAllStubs)
	mux.HandleFunc("POST /append", a.handleAppendStubs)
	mux.HandleFunc("GET /{id}", a.handleGetStub)
	mux.HandleFunc("PUT /{id}", a.handleUpdateStub)
	mux.HandleFunc("DELETE /{id}", a.handleDeleteStub)
}
