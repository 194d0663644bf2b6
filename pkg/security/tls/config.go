package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"formarter/compliance/pkg/config"
)

// ServerConfig returns the crypto/tls configuration for cfg serving the
// reloader's certificate. A client CA file enables mutual TLS with
// verified client certificates.
func ServerConfig(cfg *config.TLSConfig, r *Reloader) (*tls.Config, error) {
	if r == nil {
		return nil, fmt.Errorf("certificate reloader is nil")
	}

	tlsConfig := &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     minVersion(cfg.MinVersion),
	}

	if cfg.ClientCAFile != "" {
		pem, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in client CA file %s", cfg.ClientCAFile)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tlsConfig, nil
}

func minVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}
