package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// expiryWarning is the remaining validity below which loads are logged
// at warn level.
const expiryWarning = 30 * 24 * time.Hour

// ValidateCertificate checks that the leaf of cert is currently valid.
func ValidateCertificate(cert *tls.Certificate, now time.Time) (*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}
	if len(cert.Certificate) == 0 {
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

// CheckCertificateExpiration returns the whole days until leaf expires and
// whether that is inside the warning window.
func CheckCertificateExpiration(leaf *x509.Certificate, now time.Time) (daysUntilExpiry int, expiringSoon bool) {
	remaining := leaf.NotAfter.Sub(now)
	return int(remaining.Hours() / 24), remaining < expiryWarning
}
