package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvHost         = "STUBD_HOST"
	EnvStubsPort    = "STUBD_STUBS_PORT"
	EnvTLSPort      = "STUBD_TLS_PORT"
	EnvAdminPort    = "STUBD_ADMIN_PORT"
	EnvTLSCert      = "STUBD_TLS_CERT"
	EnvTLSKey       = "STUBD_TLS_KEY"
	EnvDisableTLS   = "STUBD_DISABLE_TLS"
	EnvDisableAdmin = "STUBD_DISABLE_ADMIN"
	EnvReadTimeout  = "STUBD_READ_TIMEOUT"
	EnvWriteTimeout = "STUBD_WRITE_TIMEOUT"
	EnvMaxConns     = "STUBD_MAX_CONNECTIONS"
	EnvLogLevel     = "STUBD_LOG_LEVEL"
	EnvLogFormat    = "STUBD_LOG_FORMAT"
	EnvData         = "STUBD_DATA"
	EnvAdminURL     = "STUBD_ADMIN_URL"
)

// LoadEnv overrides cfg with values present in the environment.
// Unparseable numbers are ignored.
func LoadEnv(cfg *ServerConfiguration) {
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Host = v
	}

	envInt(EnvStubsPort, &cfg.StubsPort)
	envInt(EnvTLSPort, &cfg.TLSPort)
	envInt(EnvAdminPort, &cfg.AdminPort)
	envInt(EnvReadTimeout, &cfg.ReadTimeout)
	envInt(EnvWriteTimeout, &cfg.WriteTimeout)
	envInt(EnvMaxConns, &cfg.MaxConnections)

	if v := os.Getenv(EnvTLSCert); v != "" {
		cfg.TLSCertFile = v
	}
	if v := os.Getenv(EnvTLSKey); v != "" {
		cfg.TLSKeyFile = v
	}

	envBool(EnvDisableTLS, &cfg.DisableTLS)
	envBool(EnvDisableAdmin, &cfg.DisableAdmin)

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv(EnvData); v != "" {
		cfg.DataFile = v
	}
}

// AdminURLFromEnv returns the admin portal URL clients should use, falling
// back to the default admin port on localhost.
func AdminURLFromEnv() string {
	if v := os.Getenv(EnvAdminURL); v != "" {
		return v
	}
	port := DefaultAdminPort
	envInt(EnvAdminPort, &port)
	return "http://localhost:" + strconv.Itoa(port)
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		v = strings.ToLower(v)
		*dst = v == "true" || v == "1" || v == "yes"
	}
}
