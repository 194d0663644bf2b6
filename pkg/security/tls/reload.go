package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Reloader holds the server key pair and reloads it when the files change.
type Reloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	cert     *tls.Certificate
	certTime time.Time
	keyTime  time.Time
}

// NewReloader loads the key pair once and fails when it is unreadable,
// mismatched or outside its validity period.
func NewReloader(certFile, keyFile string) (*Reloader, error) {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default().With("component", "tls"),
		now:      time.Now,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Run checks the files every interval until ctx is done. A failed reload
// keeps the previous certificate.
func (r *Reloader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reload(); err != nil {
				r.logger.Error("failed to reload certificate",
					"error", err,
					"cert_file", r.certFile,
					"key_file", r.keyFile,
				)
			}
		}
	}
}

// Reload re-reads the key pair if either file changed since the last load
// and reports whether it did.
func (r *Reloader) Reload() (bool, error) {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false, err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false, err
	}

	r.mu.RLock()
	changed := certInfo.ModTime().After(r.certTime) || keyInfo.ModTime().After(r.keyTime)
	r.mu.RUnlock()
	if !changed {
		return false, nil
	}
	if err := r.load(); err != nil {
		return false, err
	}
	return true, nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

func (r *Reloader) load() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return fmt.Errorf("certificate file: %w", err)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return fmt.Errorf("key file: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load key pair: %w", err)
	}
	now := r.now()
	leaf, err := validateKeyPair(&cert, now)
	if err != nil {
		return err
	}
	cert.Leaf = leaf

	r.mu.Lock()
	r.cert = &cert
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.mu.Unlock()

	remaining := leaf.NotAfter.Sub(now)
	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
		"expires_in_days", int(remaining.Hours() / 24),
	}
	if remaining < expiryWarning {
		r.logger.Warn("certificate expiring soon", attrs...)
	} else {
		r.logger.Info("certificate loaded", attrs...)
	}
	return nil
}
