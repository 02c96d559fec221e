package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert(nil)
	require.NoError(t, err)

	assert.Equal(t, elliptic.P256(), cert.PrivateKey.Curve)
	assert.Equal(t, "stubd", cert.Certificate.Subject.Organization[0])
	assert.Equal(t, "localhost", cert.Certificate.Subject.CommonName)
	assert.Contains(t, cert.Certificate.DNSNames, "localhost")
	assert.False(t, cert.Certificate.IsCA)
	assert.Contains(t, cert.Certificate.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.NotZero(t, cert.Certificate.KeyUsage&x509.KeyUsageDigitalSignature)
	assert.Contains(t, string(cert.CertPEM), "BEGIN CERTIFICATE")
	assert.Contains(t, string(cert.KeyPEM), "BEGIN EC PRIVATE KEY")

	require.NoError(t, cert.Certificate.VerifyHostname("localhost"))
	require.NoError(t, cert.Certificate.VerifyHostname("127.0.0.1"))
}

func TestGenerateSelfSignedCert_Validity(t *testing.T) {
	cert, err := GenerateSelfSignedCert(&CertificateConfig{
		Organization: "Test",
		CommonName:   "test.local",
		DNSNames:     []string{"test.local"},
		IPAddresses:  []net.IP{net.ParseIP("10.0.0.1")},
		ValidFor:     time.Hour,
	})
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, cert.Certificate.NotBefore.Before(now))
	assert.True(t, cert.Certificate.NotAfter.After(now))
	assert.Less(t, cert.Certificate.NotAfter.Sub(now), 2*time.Hour)
}

func TestGenerateSelfSignedCert_UniqueSerials(t *testing.T) {
	serials := make(map[string]bool)
	for range 5 {
		cert, err := GenerateSelfSignedCert(nil)
		require.NoError(t, err)
		serial := cert.Certificate.SerialNumber.String()
		assert.False(t, serials[serial], "duplicate serial number")
		serials[serial] = true
	}
}

func TestKeyPair(t *testing.T) {
	t.Run("generates when no files", func(t *testing.T) {
		cert, err := KeyPair("", "")
		require.NoError(t, err)
		assert.Len(t, cert.Certificate, 1)
		assert.IsType(t, &ecdsa.PrivateKey{}, cert.PrivateKey)
	})

	t.Run("loads files", func(t *testing.T) {
		gen, err := GenerateSelfSignedCert(nil)
		require.NoError(t, err)
		dir := t.TempDir()
		certPath := filepath.Join(dir, "server.crt")
		keyPath := filepath.Join(dir, "server.key")
		require.NoError(t, os.WriteFile(certPath, gen.CertPEM, 0o644))
		require.NoError(t, os.WriteFile(keyPath, gen.KeyPEM, 0o600))

		cert, err := KeyPair(certPath, keyPath)
		require.NoError(t, err)

		info, err := Info(cert)
		require.NoError(t, err)
		assert.Equal(t, gen.Certificate.SerialNumber.String(), info.SerialNumber)
	})

	t.Run("missing key file", func(t *testing.T) {
		_, err := KeyPair("server.crt", "")
		assert.Error(t, err)
	})

	t.Run("unreadable files", func(t *testing.T) {
		_, err := KeyPair("/nonexistent/server.crt", "/nonexistent/server.key")
		assert.Error(t, err)
	})
}

func TestInfo(t *testing.T) {
	cert, err := KeyPair("", "")
	require.NoError(t, err)

	info, err := Info(cert)
	require.NoError(t, err)
	assert.Contains(t, info.Subject, "localhost")
	assert.Contains(t, info.DNSNames, "localhost")
	assert.Contains(t, info.IPAddresses, "127.0.0.1")
	assert.NotEmpty(t, info.NotAfter)

	_, err = Info(tls.Certificate{})
	assert.Error(t, err)
}
