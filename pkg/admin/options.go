// Option functions for configuring API.

package admin

import (
	"log/slog"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/metrics"
)

// Option configures an API.
type Option func(*API)

// WithStore sets the stub repository the API manages.
func WithStore(store storage.Store) Option {
	return func(a *API) {
		if store != nil {
			a.store = store
		}
	}
}

// WithEngine connects the stubs portal whose ports and uptime /status reports.
func WithEngine(e Engine) Option {
	return func(a *API) {
		a.engine = e
	}
}

// WithMetrics sets the metrics exposed on /metrics and counted per request.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) {
		a.metrics = m
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// WithHost sets the interface the admin listener binds to.
func WithHost(host string) Option {
	return func(a *API) {
		a.host = host
	}
}

// WithBaseDir sets the directory that file references and includes in
// posted stub documents resolve against.
func WithBaseDir(dir string) Option {
	return func(a *API) {
		a.baseDir = dir
	}
}

// WithVersion sets the version reported by /status.
func WithVersion(version string) Option {
	return func(a *API) {
		a.version = version
	}
}
