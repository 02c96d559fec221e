// Package engine serves stubbed HTTP interactions.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────┐
//	│                     Stubs portal (:8882, :7443)            │
//	│                                                            │
//	│  Handler ──► Selector ──► storage.Store.Search             │
//	│     │            │                                         │
//	│     │            ├── recording.Fetcher (recordable bodies) │
//	│     │            └── template.Engine   (<% token %>)       │
//	│     │                                                      │
//	│     └── proxy.Proxy (unmatched requests, proxy configs)    │
//	└───────────────────────────────────────────────────────────┘
//
// The Handler converts an *http.Request into a stub.Request and asks the
// Selector for an outcome. Outcomes are rendered as follows:
//   - NotFound: 404 with a diagnostic naming the method and URI
//   - Unauthorized: 401 with a diagnostic about the Authorization header
//   - Redirect: status and headers first with Connection: close, then latency
//   - OK: latency, then headers, status and body
//   - Proxy: the request is forwarded to the selected proxy config
//
// An unparseable latency renders as 500.
//
// # Basic Usage
//
//	repo := storage.NewRepository()
//	_ = repo.ReplaceAll(lifecycles)
//
//	srv := engine.NewServer(cfg, engine.WithStore(repo))
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
package engine
