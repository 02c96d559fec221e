package admin

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/metrics"
)

// Engine is the view of the stubs portal the status page needs.
type Engine interface {
	Ports() map[string]int
	Uptime() time.Duration
	TLSCertificate() (tls.Certificate, bool)
}

// API exposes a REST API for managing stubs.
type API struct {
	store   storage.Store
	engine  Engine
	metrics *metrics.Metrics
	loader  *config.Loader
	log     *slog.Logger
	host    string
	port    int
	baseDir string
	version string

	handler http.Handler

	mu         sync.RWMutex
	httpServer *http.Server
	addr       net.Addr
	startTime  time.Time
}

// NewAPI creates a new API listening on port once started.
func NewAPI(port int, opts ...Option) *API {
	a := &API{
		port:      port,
		host:      config.DefaultHost,
		log:       logging.Nop(),
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.store == nil {
		a.store = storage.NewRepository()
	}
	a.loader = config.NewLoader(logging.Component(a.log, "loader"))

	mux := http.NewServeMux()
	a.registerRoutes(mux)
	a.handler = a.withMiddleware(mux)
	a.metrics.SetStubs(a.store.Count())
	return a
}

// Handler returns the API's HTTP handler, middleware included.
func (a *API) Handler() http.Handler {
	return a.handler
}

// Start binds the admin listener and serves in the background.
func (a *API) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.httpServer != nil {
		return errors.New("admin API is already running")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(a.host, strconv.Itoa(a.port)))
	if err != nil {
		return fmt.Errorf("failed to listen on admin port %d: %w", a.port, err)
	}
	a.addr = ln.Addr()
	a.startTime = time.Now()
	a.httpServer = &http.Server{
		Handler:      a.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	a.log.Info("starting admin portal", "addr", a.addr.String())
	srv := a.httpServer
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("admin server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the admin listener.
func (a *API) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.httpServer.Shutdown(ctx)
	a.httpServer = nil
	a.log.Info("admin portal stopped")
	return err
}

// Port returns the bound port, or the configured one before Start.
func (a *API) Port() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if tcp, ok := a.addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return a.port
}

// URL returns the base URL of the admin portal.
func (a *API) URL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.addr == nil {
		return fmt.Sprintf("http://%s", net.JoinHostPort(a.host, strconv.Itoa(a.port)))
	}
	return "http://" + a.addr.String()
}

// Uptime returns how long the admin portal has been up.
func (a *API) Uptime() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return time.Since(a.startTime)
}
