package engine

import (
	"crypto/tls"
	"fmt"

	"github.com/getmockd/stubd/pkg/config"
	stubdtls "github.com/getmockd/stubd/pkg/tls"
)

// TLSManager builds the TLS configuration for the stubs portal's TLS listener.
type TLSManager struct {
	certFile string
	keyFile  string
	disabled bool

	cert *tls.Certificate
}

// NewTLSManager creates a TLSManager for the given key pair. Empty paths make
// BuildConfig generate a self-signed certificate.
func NewTLSManager(certFile, keyFile string) *TLSManager {
	return &TLSManager{certFile: certFile, keyFile: keyFile}
}

// NewTLSManagerFromServerConfig creates a TLSManager from server configuration.
func NewTLSManagerFromServerConfig(cfg *config.ServerConfiguration) *TLSManager {
	return &TLSManager{
		certFile: cfg.TLSCertFile,
		keyFile:  cfg.TLSKeyFile,
		disabled: cfg.DisableTLS,
	}
}

// BuildConfig builds and returns the TLS configuration.
// Returns nil if TLS is disabled.
func (tm *TLSManager) BuildConfig() (*tls.Config, error) {
	if tm.disabled {
		return nil, nil
	}

	cert, err := stubdtls.KeyPair(tm.certFile, tm.keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare TLS certificate: %w", err)
	}
	tm.cert = &cert

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Certificate returns the certificate chosen by the last BuildConfig call.
func (tm *TLSManager) Certificate() (tls.Certificate, bool) {
	if tm.cert == nil {
		return tls.Certificate{}, false
	}
	return *tm.cert, true
}

// SelfSigned reports whether BuildConfig generates its certificate.
func (tm *TLSManager) SelfSigned() bool {
	return tm.certFile == "" && tm.keyFile == ""
}
