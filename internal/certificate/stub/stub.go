package stub

import (
	"context"

	"github.com/linkrail/linkrail/internal/certificate/domain"
)

// Issuer is wired when no real provider is configured. It fails immediately
// instead of hanging so callers surface the misconfiguration right away.
type Issuer struct{}

func New() *Issuer { return &Issuer{} }

func (Issuer) Name() string { return "stub" }

func (Issuer) Issue(ctx context.Context, hostname string) (*domain.Certificate, error) {
	return nil, domain.NewProviderError("stub", domain.CategoryMisconfiguration,
		"certificate provider not implemented, configure acme or origin_ca", domain.ErrNotImplemented)
}
