// Package admin provides the REST API for managing stubs at runtime.
//
// Stubs are exchanged as the same YAML documents the server loads at
// startup. Endpoints:
//
//	GET    /                     - List all stubs (YAML, or JSON with Accept: application/json)
//	GET    /{id}                 - Get a stub by index or uuid
//	POST   /                     - Replace all stubs
//	POST   /append               - Append stubs
//	PUT    /{id}                 - Replace a stub by index or uuid
//	DELETE /{id}                 - Delete a stub by index or uuid
//	DELETE /                     - Delete all stubs
//	GET    /stats                - Hits per stub (JSON, or CSV with ?format=csv)
//	GET    /status               - Server status
//	GET    /proxy-config         - List proxy configs
//	GET    /proxy-config/{uuid}  - Get a proxy config
//	PUT    /proxy-config/{uuid}  - Create or replace a proxy config
//	DELETE /proxy-config/{uuid}  - Delete a proxy config
//	GET    /metrics              - Prometheus metrics
//	GET    /ping                 - Liveness
//
// Usage:
//
//	srv := engine.NewServer(cfg, engine.WithStore(repo))
//	_ = srv.Start()
//
//	api := admin.NewAPI(cfg.AdminPort, admin.WithStore(repo), admin.WithEngine(srv))
//	_ = api.Start()
//	defer api.Stop()
//
// Example curl commands:
//
//	# Replace all stubs
//	curl -X POST http://localhost:8889/ --data-binary @stubs.yaml
//
//	# Hit counts as CSV
//	curl http://localhost:8889/stats?format=csv
package admin
