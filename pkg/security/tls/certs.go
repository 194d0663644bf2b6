package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// expiryWarning is how close to expiry a certificate is logged as a warning.
const expiryWarning = 30 * 24 * time.Hour

// validateKeyPair checks that cert has a leaf that is currently valid and
// returns the parsed leaf.
func validateKeyPair(cert *tls.Certificate, now time.Time) (*x509.Certificate, error) {
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	if now.Before(leaf.NotBefore) {
		return nil, fmt.Errorf("certificate is not yet valid (valid from %s)", leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	return leaf, nil
}
