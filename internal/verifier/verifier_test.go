package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkrail/linkrail/internal/clock"
	"github.com/linkrail/linkrail/internal/config"
	"github.com/linkrail/linkrail/internal/customdomain/domain"
)

type stubDomains struct {
	domain.Service

	calls    int
	verified int
	err      error
}

func (s *stubDomains) ReverifyPending(ctx context.Context, limit int) (int, error) {
	s.calls++
	return s.verified, s.err
}

func newTestVerifier(t *testing.T, pollSeconds int, domains domain.Service) *Verifier {
	t.Helper()
	holder, err := config.NewStaticDomainConfigHolder(config.DomainConfig{
		MaxDomainsPerTenant: 5,
		CacheTTLSeconds:     300,
		DNSTimeoutMs:        5000,
		CNAMETarget:         "domains.linkrail.io",
		ServerIP:            "203.0.113.10",
		VerifyPollSeconds:   pollSeconds,
	})
	require.NoError(t, err)

	return New(Params{
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Holder:  holder,
		Domains: domains,
	})
}

func TestRunOnceDelegates(t *testing.T) {
	stub := &stubDomains{verified: 2}
	v := newTestVerifier(t, 30, stub)

	require.NoError(t, v.RunOnce(context.Background()))
	assert.Equal(t, 1, stub.calls)

	stub.err = errors.New("db down")
	assert.Error(t, v.RunOnce(context.Background()))
}

func TestIntervalDisabledByDefault(t *testing.T) {
	v := newTestVerifier(t, 0, &stubDomains{})
	assert.Zero(t, v.Interval())

	v = newTestVerifier(t, 45, &stubDomains{})
	assert.Equal(t, 45*time.Second, v.Interval())
}
