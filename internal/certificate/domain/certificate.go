package domain

import (
	"context"
	"time"
)

// Certificate is the issued material handed back to the caller. PEM blocks
// are stored verbatim so they can be persisted and served without re-encoding.
type Certificate struct {
	Hostname       string
	CertificatePEM string
	PrivateKeyPEM  string
	ChainPEM       string
	Issuer         string
	ValidFrom      time.Time
	ValidUntil     time.Time
}

// Issuer obtains a certificate for a single hostname. Implementations are
// selected at startup from configuration and must honor ctx cancellation.
type Issuer interface {
	Name() string
	Issue(ctx context.Context, hostname string) (*Certificate, error)
}
