package config

import (
	"errors"
	"fmt"
	"time"
)

// Default ports and limits.
const (
	DefaultStubsPort          = 8882
	DefaultTLSPort            = 7443
	DefaultAdminPort          = 8889
	DefaultHost               = "localhost"
	DefaultReadTimeout        = 30
	DefaultWriteTimeout       = 30
	DefaultMaxRequestBodySize = 10 * 1024 * 1024 // 10MB
)

// ServerConfiguration defines the stub server runtime settings.
type ServerConfiguration struct {
	// Host is the interface the listeners bind to.
	Host string `json:"host" yaml:"host"`
	// StubsPort serves stubs over plain HTTP.
	StubsPort int `json:"stubsPort" yaml:"stubsPort"`
	// TLSPort serves stubs over HTTPS.
	TLSPort int `json:"tlsPort" yaml:"tlsPort"`
	// AdminPort serves the admin portal.
	AdminPort int `json:"adminPort" yaml:"adminPort"`

	// TLSCertFile and TLSKeyFile name a PEM key pair. When both are empty a
	// self-signed certificate is generated at startup.
	TLSCertFile string `json:"tlsCertFile,omitempty" yaml:"tlsCertFile,omitempty"`
	TLSKeyFile  string `json:"tlsKeyFile,omitempty" yaml:"tlsKeyFile,omitempty"`

	DisableTLS   bool `json:"disableTls" yaml:"disableTls"`
	DisableAdmin bool `json:"disableAdmin" yaml:"disableAdmin"`

	// ReadTimeout is the HTTP read timeout in seconds
	ReadTimeout int `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	// WriteTimeout is the HTTP write timeout in seconds
	WriteTimeout int `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	// MaxRequestBodySize bounds the request bodies read by the stub portal.
	MaxRequestBodySize int64 `json:"maxRequestBodySize,omitempty" yaml:"maxRequestBodySize,omitempty"`
	// MaxConnections limits concurrent connections per stubs listener (default: 0 = unlimited)
	MaxConnections int `json:"maxConnections,omitempty" yaml:"maxConnections,omitempty"`

	LogLevel  string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`

	// DataFile is the stub YAML file loaded at startup.
	DataFile string `json:"dataFile,omitempty" yaml:"dataFile,omitempty"`
}

// DefaultServerConfiguration returns a ServerConfiguration with default values.
func DefaultServerConfiguration() *ServerConfiguration {
	return &ServerConfiguration{
		Host:               DefaultHost,
		StubsPort:          DefaultStubsPort,
		TLSPort:            DefaultTLSPort,
		AdminPort:          DefaultAdminPort,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		MaxRequestBodySize: DefaultMaxRequestBodySize,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Validate checks port ranges and the TLS key pair.
func (c *ServerConfiguration) Validate() error {
	if err := validatePort("stubs port", c.StubsPort); err != nil {
		return err
	}
	if !c.DisableTLS {
		if err := validatePort("tls port", c.TLSPort); err != nil {
			return err
		}
	}
	if !c.DisableAdmin {
		if err := validatePort("admin port", c.AdminPort); err != nil {
			return err
		}
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("tls certificate and key must be provided together")
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max connections must not be negative: %d", c.MaxConnections)
	}
	if c.MaxRequestBodySize < 0 {
		return fmt.Errorf("max request body size must not be negative: %d", c.MaxRequestBodySize)
	}
	return nil
}

// ReadTimeoutDuration returns ReadTimeout as a duration.
func (c *ServerConfiguration) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns WriteTimeout as a duration.
func (c *ServerConfiguration) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// Ports returns the configured listener ports keyed by listener name.
// Disabled listeners are omitted.
func (c *ServerConfiguration) Ports() map[string]int {
	ports := map[string]int{"stubs": c.StubsPort}
	if !c.DisableTLS {
		ports["tls"] = c.TLSPort
	}
	if !c.DisableAdmin {
		ports["admin"] = c.AdminPort
	}
	return ports
}

// validatePort allows 0, which binds a free port.
func validatePort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid %s: %d", name, port)
	}
	return nil
}
