package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/admin"
	"github.com/getmockd/stubd/pkg/cli/internal/output"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/engine"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/metrics"
)

// serveCfg is bound to the serve flags. Its defaults already carry the
// STUBD_* environment overrides.
var serveCfg = envServerConfiguration()

func envServerConfiguration() *config.ServerConfiguration {
	cfg := config.DefaultServerConfiguration()
	config.LoadEnv(cfg)
	return cfg
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stub server (foreground)",
	Long: `Start the stubs portal, its TLS twin and the admin portal.

Without --tls-cert/--tls-key a self-signed certificate for localhost is
generated at startup. Port 0 binds a free port.`,
	Example: `  # Serve a stub document with defaults
  stubd serve --data stubs.yaml

  # Custom ports, no TLS listener
  stubd serve --data stubs.yaml --stubs-port 9000 --admin-port 9001 --disable-tls

  # Serve with a real key pair and JSON logs
  stubd serve --data stubs.yaml --tls-cert server.crt --tls-key server.key --log-format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, serveCfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCfg
	serveCmd.Flags().StringVarP(&f.DataFile, "data", "d", f.DataFile, "Path to the stub YAML document (env "+config.EnvData+")")
	serveCmd.Flags().StringVar(&f.Host, "host", f.Host, "Interface the listeners bind to")
	serveCmd.Flags().IntVarP(&f.StubsPort, "stubs-port", "s", f.StubsPort, "Stubs portal port")
	serveCmd.Flags().IntVarP(&f.TLSPort, "tls-port", "t", f.TLSPort, "Stubs portal TLS port")
	serveCmd.Flags().IntVarP(&f.AdminPort, "admin-port", "a", f.AdminPort, "Admin portal port")
	serveCmd.Flags().StringVar(&f.TLSCertFile, "tls-cert", f.TLSCertFile, "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&f.TLSKeyFile, "tls-key", f.TLSKeyFile, "Path to TLS private key file")
	serveCmd.Flags().BoolVar(&f.DisableTLS, "disable-tls", f.DisableTLS, "Do not start the TLS listener")
	serveCmd.Flags().BoolVar(&f.DisableAdmin, "disable-admin", f.DisableAdmin, "Do not start the admin portal")
	serveCmd.Flags().IntVar(&f.ReadTimeout, "read-timeout", f.ReadTimeout, "Read timeout in seconds")
	serveCmd.Flags().IntVar(&f.WriteTimeout, "write-timeout", f.WriteTimeout, "Write timeout in seconds")
	serveCmd.Flags().IntVar(&f.MaxConnections, "max-connections", f.MaxConnections, "Maximum concurrent connections per stubs listener (0 = unlimited)")
	serveCmd.Flags().Int64Var(&f.MaxRequestBodySize, "max-body-size", f.MaxRequestBodySize, "Maximum request body size in bytes")
	serveCmd.Flags().StringVar(&f.LogLevel, "log-level", f.LogLevel, "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.LogFormat, "log-format", f.LogFormat, "Log format (text, json)")
}

// serveContext holds everything started by serve.
type serveContext struct {
	log      *slog.Logger
	repo     *storage.Repository
	metrics  *metrics.Metrics
	server   *engine.Server
	adminAPI *admin.API
}

// runServe starts the servers and blocks until ctx is done.
func runServe(ctx context.Context, cfg *config.ServerConfiguration, out io.Writer) error {
	sctx, err := startServers(cfg, os.Stderr)
	if err != nil {
		return err
	}
	printServeStartupMessage(out, sctx)

	<-ctx.Done()
	fmt.Fprintln(out, "\nShutting down...")
	sctx.shutdown(out)
	fmt.Fprintln(out, "Server stopped")
	return nil
}

// startServers loads the stub document and starts the stubs and admin
// portals. Logs go to logOut.
func startServers(cfg *config.ServerConfiguration, logOut io.Writer) (*serveContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.FromFlags(cfg.LogLevel, cfg.LogFormat, logOut)
	sctx := &serveContext{
		log:     log,
		repo:    storage.NewRepository(storage.WithLogger(logging.Component(log, "storage"))),
		metrics: metrics.New(),
	}

	var baseDir string
	if cfg.DataFile != "" {
		res, err := config.NewLoader(logging.Component(log, "config")).LoadFile(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load stubs: %w", err)
		}
		if err := sctx.repo.Reload(res.Lifecycles, res.ProxyConfigs); err != nil {
			return nil, fmt.Errorf("failed to load stubs: %w", err)
		}
		baseDir = filepath.Dir(cfg.DataFile)
		log.Info("stubs loaded", "file", cfg.DataFile, "stubs", len(res.Lifecycles), "proxyConfigs", len(res.ProxyConfigs), "files", len(res.Files))
	}
	sctx.metrics.SetStubs(sctx.repo.Count())

	sctx.server = engine.NewServer(cfg,
		engine.WithStore(sctx.repo),
		engine.WithLogger(logging.Component(log, "engine")),
		engine.WithMetrics(sctx.metrics),
	)
	if err := sctx.server.Start(); err != nil {
		return nil, fmt.Errorf("failed to start stubs portal: %w", err)
	}

	if !cfg.DisableAdmin {
		sctx.adminAPI = admin.NewAPI(cfg.AdminPort,
			admin.WithStore(sctx.repo),
			admin.WithEngine(sctx.server),
			admin.WithMetrics(sctx.metrics),
			admin.WithLogger(logging.Component(log, "admin")),
			admin.WithHost(cfg.Host),
			admin.WithBaseDir(baseDir),
			admin.WithVersion(Version),
		)
		if err := sctx.adminAPI.Start(); err != nil {
			_ = sctx.server.Stop()
			return nil, fmt.Errorf("failed to start admin portal: %w", err)
		}
	}
	return sctx, nil
}

// shutdown stops the admin portal first, then the stubs portal.
func (s *serveContext) shutdown(warnOut io.Writer) {
	if s.adminAPI != nil {
		if err := s.adminAPI.Stop(); err != nil {
			output.Warn(warnOut, "admin portal shutdown error: %v", err)
		}
	}
	if s.server != nil {
		if err := s.server.Stop(); err != nil {
			output.Warn(warnOut, "stubs portal shutdown error: %v", err)
		}
	}
}

// printServeStartupMessage prints the server startup information.
func printServeStartupMessage(out io.Writer, s *serveContext) {
	fmt.Fprintf(out, "stubd started (%d stubs, %d proxy configs)\n", s.repo.Count(), len(s.repo.ProxyConfigs()))
	fmt.Fprintf(out, "  Stubs portal: %s\n", s.server.URL())
	if u := s.server.TLSURL(); u != "" {
		fmt.Fprintf(out, "  TLS portal:   %s\n", u)
	}
	if s.adminAPI != nil {
		fmt.Fprintf(out, "  Admin portal: %s\n", s.adminAPI.URL())
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
