// Package engine provides the stubs portal: request resolution, outcome
// rendering and the HTTP and TLS listeners.
package engine

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

	"golang.org/x/net/netutil"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/metrics"
	"github.com/getmockd/stubd/pkg/proxy"
	"github.com/getmockd/stubd/pkg/recording"
)

// shutdownTimeout bounds graceful shutdown of the listeners.
const shutdownTimeout = 5 * time.Second

// Server runs the stubs portal over plain HTTP and, unless disabled, TLS.
type Server struct {
	cfg        *config.ServerConfiguration
	store      storage.Store
	metrics    *metrics.Metrics
	fetcher    recording.Fetcher
	log        *slog.Logger
	handler    *Handler
	tlsManager *TLSManager

	mu          sync.RWMutex
	httpServer  *http.Server
	httpsServer *http.Server
	httpAddr    net.Addr
	httpsAddr   net.Addr
	running     bool
	startTime   time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithStore sets the stub repository the server resolves requests against.
func WithStore(store storage.Store) ServerOption {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the metrics sink shared by the portal's components.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRecorder replaces the fetcher used for recordable responses.
func WithRecorder(f recording.Fetcher) ServerOption {
	return func(s *Server) {
		s.fetcher = f
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg *config.ServerConfiguration, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = config.DefaultServerConfiguration()
	}

	s := &Server{
		cfg: cfg,
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = storage.NewRepository(storage.WithLogger(logging.Component(s.log, "storage")))
	}
	if s.fetcher == nil {
		s.fetcher = recording.New(recording.WithLogger(logging.Component(s.log, "recording")))
	}

	selector := NewSelector(s.store,
		WithFetcher(s.fetcher),
		WithSelectorMetrics(s.metrics),
		WithSelectorLogger(logging.Component(s.log, "selector")),
	)
	s.handler = NewHandler(selector,
		WithProxy(proxy.New(
			proxy.WithLogger(logging.Component(s.log, "proxy")),
			proxy.WithMetrics(s.metrics),
		)),
		WithHandlerLogger(s.log),
		WithMaxBodySize(cfg.MaxRequestBodySize),
	)
	s.tlsManager = NewTLSManagerFromServerConfig(cfg)
	return s
}

// Start binds the listeners and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server is already running")
	}

	var tlsConfig *tls.Config
	if !s.cfg.DisableTLS {
		var err error
		if tlsConfig, err = s.tlsManager.BuildConfig(); err != nil {
			return fmt.Errorf("failed to setup TLS: %w", err)
		}
	}

	httpLn, err := net.Listen("tcp", hostPort(s.cfg.Host, s.cfg.StubsPort))
	if err != nil {
		return fmt.Errorf("failed to listen on stubs port %d: %w", s.cfg.StubsPort, err)
	}
	var tlsLn net.Listener
	if tlsConfig != nil {
		if tlsLn, err = net.Listen("tcp", hostPort(s.cfg.Host, s.cfg.TLSPort)); err != nil {
			_ = httpLn.Close()
			return fmt.Errorf("failed to listen on TLS port %d: %w", s.cfg.TLSPort, err)
		}
	}

	if n := s.cfg.MaxConnections; n > 0 {
		httpLn = netutil.LimitListener(httpLn, n)
		if tlsLn != nil {
			tlsLn = netutil.LimitListener(tlsLn, n)
		}
	}

	handler := MetricsMiddleware(s.metrics, s.handler)

	s.httpServer = s.newHTTPServer(handler, nil)
	s.httpAddr = httpLn.Addr()
	s.log.Info("starting stubs portal", "addr", s.httpAddr.String())
	go s.serve(s.httpServer, httpLn, "HTTP")

	if tlsLn != nil {
		s.httpsServer = s.newHTTPServer(handler, tlsConfig)
		s.httpsAddr = tlsLn.Addr()
		s.log.Info("starting stubs portal over TLS",
			"addr", s.httpsAddr.String(),
			"self_signed", s.tlsManager.SelfSigned(),
		)
		go s.serve(s.httpsServer, tls.NewListener(tlsLn, tlsConfig), "HTTPS")
	}

	s.running = true
	s.startTime = time.Now()
	return nil
}

func (s *Server) newHTTPServer(handler http.Handler, tlsConfig *tls.Config) *http.Server {
	return &http.Server{
		Handler:      handler,
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.cfg.ReadTimeoutDuration(),
		WriteTimeout: s.cfg.WriteTimeoutDuration(),
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
	}
}

func (s *Server) serve(srv *http.Server, ln net.Listener, name string) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error(name+" server error", "error", err)
	}
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}
	if s.httpsServer != nil {
		if err := s.httpsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTPS shutdown: %w", err))
		}
	}

	s.running = false
	s.log.Info("stubs portal stopped")
	return errors.Join(errs...)
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startTime)
}

// StartTime returns when the server was started.
func (s *Server) StartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime
}

// Ports returns the bound port of each running listener, keyed "stubs" and
// "tls". Ports configured as 0 report the port the kernel picked.
func (s *Server) Ports() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ports := make(map[string]int, 2)
	if p := portOf(s.httpAddr); p > 0 {
		ports["stubs"] = p
	}
	if p := portOf(s.httpsAddr); p > 0 {
		ports["tls"] = p
	}
	return ports
}

// URL returns the base URL of the plain HTTP listener, or "" before Start.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpAddr == nil {
		return ""
	}
	return "http://" + s.httpAddr.String()
}

// TLSURL returns the base URL of the TLS listener, or "" when it is not running.
func (s *Server) TLSURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpsAddr == nil {
		return ""
	}
	return "https://" + s.httpsAddr.String()
}

// TLSCertificate returns the certificate served by the TLS listener.
func (s *Server) TLSCertificate() (tls.Certificate, bool) {
	return s.tlsManager.Certificate()
}

// Config returns the server configuration.
func (s *Server) Config() *config.ServerConfiguration {
	return s.cfg
}

// Store returns the stub repository.
func (s *Server) Store() storage.Store {
	return s.store
}

// Handler returns the stubs portal handler without the metrics middleware.
func (s *Server) Handler() *Handler {
	return s.handler
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func portOf(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
