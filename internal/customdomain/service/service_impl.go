package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/linkrail/linkrail/internal/certificate"
	certdomain "github.com/linkrail/linkrail/internal/certificate/domain"
	"github.com/linkrail/linkrail/internal/clock"
	"github.com/linkrail/linkrail/internal/config"
	"github.com/linkrail/linkrail/internal/customdomain/domain"
	"github.com/linkrail/linkrail/internal/dnscache"
	obsmetrics "github.com/linkrail/linkrail/internal/observability/metrics"
	"github.com/linkrail/linkrail/internal/resolver"
	tldomain "github.com/linkrail/linkrail/internal/trackinglink/domain"
	"github.com/linkrail/linkrail/pkg/db"
	"github.com/linkrail/linkrail/pkg/tenantctx"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Holder    *config.DomainConfigHolder
	Repo      domain.Repository
	Resolver  resolver.Resolver
	Issuer    certdomain.Issuer
	Validator *certificate.Validator
	Links     tldomain.Service
	Cache     *dnscache.Cache
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clk       clock.Clock
	cfg       config.Config
	holder    *config.DomainConfigHolder
	repo      domain.Repository
	resolver  resolver.Resolver
	issuer    certdomain.Issuer
	validator *certificate.Validator
	links     tldomain.Service
	cache     *dnscache.Cache
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("customdomain.service"),
		genID:     p.GenID,
		clk:       p.Clock,
		cfg:       p.Config,
		holder:    p.Holder,
		repo:      p.Repo,
		resolver:  p.Resolver,
		issuer:    p.Issuer,
		validator: p.Validator,
		links:     p.Links,
		cache:     p.Cache,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	hostname, err := normalizeHostname(req.Hostname)
	if err != nil {
		return nil, err
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if !domain.ValidMethod(method) {
		return nil, domain.ErrInvalidMethod
	}

	domainCfg := s.holder.Get()
	count, err := s.repo.CountByTenant(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if count >= int64(domainCfg.MaxDomainsPerTenant) {
		return nil, domain.ErrQuotaExceeded
	}

	target := domainCfg.CNAMETarget
	if method == domain.MethodARecord {
		target = domainCfg.ServerIP
	}

	now := s.clk.Now()
	d := &domain.CustomDomain{
		ID:                 s.genID.Generate().Int64(),
		TenantID:           tenantID,
		Hostname:           hostname,
		VerificationMethod: method,
		OwnershipToken:     uuid.NewString(),
		TargetValue:        target,
		Status:             domain.StatusPending,
		CertStatus:         domain.CertStatusNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, s.db, d); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrHostnameTaken
		}
		return nil, err
	}

	s.log.Info("custom domain created",
		zap.Int64("tenant_id", tenantID),
		zap.String("hostname", hostname),
		zap.String("method", method))

	resp := toResponse(d)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	items, err := s.repo.FindAll(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, s.db, d.TenantID, d.ID); err != nil {
		return err
	}

	s.cache.Invalidate(d.Hostname, "")
	if d.IsActive {
		// Fall back to the most recent remaining verified domain, or
		// back to the shared domain when none is left.
		var next *string
		remaining, err := s.repo.FindVerified(ctx, s.db, d.TenantID)
		if err != nil {
			s.log.Warn("failed to look up replacement domain",
				zap.String("hostname", d.Hostname), zap.Error(err))
		} else if len(remaining) > 0 {
			next = &remaining[0].Hostname
		}
		if _, err := s.links.Propagate(ctx, d.TenantID, next); err != nil {
			s.log.Warn("failed to repropagate hostname",
				zap.String("hostname", d.Hostname), zap.Error(err))
		}
	}
	return nil
}

// Verify re-checks DNS for the domain and overwrites the prior outcome.
// Resolution failures come back as data on the result, never as an error.
func (s *Service) Verify(ctx context.Context, id string) (*domain.VerifyResult, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.verifyRow(ctx, d)
}

func (s *Service) verifyRow(ctx context.Context, d *domain.CustomDomain) (*domain.VerifyResult, error) {
	lookup, resolveErr := s.resolve(ctx, d)

	now := s.clk.Now()
	d.LastCheckedAt = &now
	d.UpdatedAt = now

	if resolveErr != nil {
		kind, message := classifyResolveError(resolveErr)
		d.Status = domain.StatusError
		d.IsActive = false
		d.LastErrorKind = &kind
		d.LastErrorMessage = &message
		if err := s.repo.UpdateVerification(ctx, s.db, d); err != nil {
			return nil, err
		}
		s.metrics.RecordVerification(ctx, d.VerificationMethod, "error")
		return &domain.VerifyResult{
			Success:      false,
			Status:       domain.StatusError,
			ErrorKind:    kind,
			ErrorMessage: message,
		}, nil
	}

	if !recordsMatch(lookup.Records, d.TargetValue, d.VerificationMethod) {
		kind := string(resolver.KindRecordNotFound)
		message := fmt.Sprintf("resolved records do not include %s", d.TargetValue)
		d.Status = domain.StatusError
		d.IsActive = false
		d.LastErrorKind = &kind
		d.LastErrorMessage = &message
		if err := s.repo.UpdateVerification(ctx, s.db, d); err != nil {
			return nil, err
		}
		s.metrics.RecordVerification(ctx, d.VerificationMethod, "mismatch")
		return &domain.VerifyResult{
			Success:      false,
			Status:       domain.StatusError,
			ErrorKind:    kind,
			ErrorMessage: message,
		}, nil
	}

	d.Status = domain.StatusVerified
	d.IsActive = true
	d.LastErrorKind = nil
	d.LastErrorMessage = nil
	if err := s.repo.UpdateVerification(ctx, s.db, d); err != nil {
		return nil, err
	}
	s.metrics.RecordVerification(ctx, d.VerificationMethod, "verified")

	if _, err := s.links.Propagate(ctx, d.TenantID, &d.Hostname); err != nil {
		s.log.Warn("hostname verified but propagation failed",
			zap.String("hostname", d.Hostname), zap.Error(err))
	}

	s.log.Info("custom domain verified",
		zap.Int64("tenant_id", d.TenantID),
		zap.String("hostname", d.Hostname))
	return &domain.VerifyResult{Success: true, Status: domain.StatusVerified}, nil
}

func (s *Service) resolve(ctx context.Context, d *domain.CustomDomain) (resolver.Lookup, error) {
	switch d.VerificationMethod {
	case domain.MethodARecord:
		return s.resolver.ResolveA(ctx, d.Hostname)
	default:
		return s.resolver.ResolveCNAME(ctx, d.Hostname)
	}
}

// RequestCertificate drives issuance for a verified domain. Refusals carry an
// explanation and change no state.
func (s *Service) RequestCertificate(ctx context.Context, id string) (*domain.CertResult, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case d.Status != domain.StatusVerified:
		return &domain.CertResult{Success: false, Message: "domain is not verified yet, verify DNS first"}, nil
	case d.CertStatus == domain.CertStatusIssued:
		return &domain.CertResult{Success: false, Message: "certificate already issued"}, nil
	case d.CertStatus == domain.CertStatusPending:
		return &domain.CertResult{Success: false, Message: "certificate issuance already in progress"}, nil
	}

	now := s.clk.Now()
	d.CertStatus = domain.CertStatusPending
	d.LastErrorMessage = nil
	d.UpdatedAt = now
	if err := s.repo.UpdateCertificate(ctx, s.db, d); err != nil {
		return nil, err
	}

	started := time.Now()
	cert, issueErr := s.issueBounded(ctx, d.Hostname)
	elapsed := time.Since(started)

	if issueErr != nil {
		category := certdomain.Categorize(issueErr)
		message := issueErr.Error()
		if pe, ok := certdomain.AsProviderError(issueErr); ok {
			category = pe.Category
			if pe.Message != "" {
				message = fmt.Sprintf("%s: %s", pe.Provider, pe.Message)
			}
		}
		failure := fmt.Sprintf("certificate issuance failed (%s): %s", category, message)

		d.CertStatus = domain.CertStatusFailed
		d.LastErrorMessage = &failure
		d.UpdatedAt = s.clk.Now()
		if err := s.repo.UpdateCertificate(ctx, s.db, d); err != nil {
			return nil, err
		}
		s.metrics.RecordCertIssuance(ctx, s.issuer.Name(), category, elapsed)
		return &domain.CertResult{Success: false, Message: failure}, nil
	}

	d.CertStatus = domain.CertStatusIssued
	d.CertificatePEM = &cert.CertificatePEM
	d.PrivateKeyPEM = &cert.PrivateKeyPEM
	if cert.ChainPEM != "" {
		d.ChainPEM = &cert.ChainPEM
	}
	if cert.Issuer != "" {
		d.CertIssuer = &cert.Issuer
	}
	validFrom, validUntil := cert.ValidFrom, cert.ValidUntil
	d.CertValidFrom = &validFrom
	d.CertValidUntil = &validUntil
	d.LastErrorMessage = nil
	d.UpdatedAt = s.clk.Now()
	if err := s.repo.UpdateCertificate(ctx, s.db, d); err != nil {
		return nil, err
	}
	s.metrics.RecordCertIssuance(ctx, s.issuer.Name(), "issued", elapsed)

	if _, err := s.links.Propagate(ctx, d.TenantID, &d.Hostname); err != nil {
		s.log.Warn("certificate issued but propagation failed",
			zap.String("hostname", d.Hostname), zap.Error(err))
	}

	s.log.Info("certificate issued",
		zap.Int64("tenant_id", d.TenantID),
		zap.String("hostname", d.Hostname),
		zap.String("provider", s.issuer.Name()),
		zap.Time("valid_until", cert.ValidUntil))
	return &domain.CertResult{Success: true, Message: "certificate issued"}, nil
}

// issueBounded runs the provider under a hard outer deadline. The provider
// goroutine is abandoned on timeout rather than cancelled, so a context-naive
// provider can never hold the caller past the ceiling.
func (s *Service) issueBounded(ctx context.Context, hostname string) (*certdomain.Certificate, error) {
	timeout := time.Duration(s.cfg.Certs.IssueTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		cert *certdomain.Certificate
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		cert, err := s.issuer.Issue(ctx, hostname)
		ch <- outcome{cert: cert, err: err}
	}()

	select {
	case out := <-ch:
		return out.cert, out.err
	case <-ctx.Done():
		return nil, certdomain.NewProviderError(s.issuer.Name(), certdomain.CategoryTimeout,
			fmt.Sprintf("issuance did not complete within %s", timeout), ctx.Err())
	}
}

// DNSInstructions is a pure projection of the stored row. No I/O beyond the
// row fetch.
func (s *Service) DNSInstructions(ctx context.Context, id string) (*domain.Instructions, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	recordType := "CNAME"
	if d.VerificationMethod == domain.MethodARecord {
		recordType = "A"
	}
	return &domain.Instructions{
		RecordType:  recordType,
		RecordName:  d.Hostname,
		RecordValue: d.TargetValue,
		Instructions: fmt.Sprintf(
			"Create a %s record for %s pointing to %s at your DNS provider, then run verification. Changes can take up to 24h to propagate. Keep ownership token %s for support requests.",
			recordType, d.Hostname, d.TargetValue, d.OwnershipToken),
	}, nil
}

func (s *Service) ValidateCertificate(ctx context.Context, id string) (*domain.ValidationResult, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	probe := s.validator.Validate(ctx, d.Hostname)
	result := &domain.ValidationResult{
		Reachable: probe.Reachable,
		Valid:     probe.Valid,
		Issuer:    probe.Issuer,
		Detail:    probe.Detail,
	}
	if !probe.NotAfter.IsZero() {
		notAfter := probe.NotAfter
		result.NotAfter = &notAfter
	}
	return result, nil
}

func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	items, err := s.repo.FindAll(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{Total: int64(len(items))}
	for i := range items {
		switch items[i].Status {
		case domain.StatusVerified:
			stats.Verified++
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusError:
			stats.Failed++
		}
		switch items[i].CertStatus {
		case domain.CertStatusIssued:
			stats.WithSSL++
		case domain.CertStatusPending:
			stats.SSLPending++
		case domain.CertStatusFailed:
			stats.SSLFailed++
		}
	}

	remaining := int64(s.holder.Get().MaxDomainsPerTenant) - stats.Total
	if remaining < 0 {
		remaining = 0
	}
	stats.RemainingSlots = remaining
	return stats, nil
}

// BestDomain returns the most recently updated active verified hostname.
func (s *Service) BestDomain(ctx context.Context) (*domain.Response, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	items, err := s.repo.FindVerified(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(&items[0])
	return &resp, nil
}

func (s *Service) VerifiedDomains(ctx context.Context) ([]domain.Response, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	items, err := s.repo.FindVerified(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) ClearDNSCache(ctx context.Context, hostname, recordType string) (int, error) {
	hostname, err := normalizeHostname(hostname)
	if err != nil {
		return 0, err
	}
	removed := s.cache.Invalidate(hostname, strings.ToUpper(strings.TrimSpace(recordType)))
	s.log.Info("dns cache cleared",
		zap.String("hostname", hostname),
		zap.String("record_type", recordType),
		zap.Int("removed", removed))
	return removed, nil
}

func (s *Service) ReverifyPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}
	items, err := s.repo.FindPending(ctx, s.db, limit)
	if err != nil {
		return 0, err
	}

	verified := 0
	for i := range items {
		result, err := s.verifyRow(ctx, &items[i])
		if err != nil {
			s.log.Warn("background verification failed",
				zap.String("hostname", items[i].Hostname), zap.Error(err))
			continue
		}
		if result.Success {
			verified++
		}
	}
	return verified, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.CustomDomain, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	domainID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	d, err := s.repo.FindByID(ctx, s.db, tenantID, domainID.Int64())
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func normalizeHostname(hostname string) (string, error) {
	hostname = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(hostname), "."))
	if hostname == "" || len(hostname) > 253 {
		return "", domain.ErrInvalidHostname
	}
	if !strings.Contains(hostname, ".") || strings.ContainsAny(hostname, " \t/\\:@") {
		return "", domain.ErrInvalidHostname
	}
	return hostname, nil
}

func classifyResolveError(err error) (string, string) {
	if resErr, ok := resolver.AsError(err); ok {
		return string(resErr.Kind), resErr.Message
	}
	return string(resolver.KindServerUnavailable), err.Error()
}

// recordsMatch checks the resolved set against the expected target. CNAME
// chains may surface the target embedded in a longer name, so containment is
// accepted there; A records must match exactly.
func recordsMatch(records []string, target, method string) bool {
	target = strings.ToLower(strings.TrimSuffix(target, "."))
	for _, record := range records {
		record = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(record), "."))
		if method == domain.MethodARecord {
			if record == target {
				return true
			}
			continue
		}
		if record == target || strings.Contains(record, target) {
			return true
		}
	}
	return false
}

func toResponse(d *domain.CustomDomain) domain.Response {
	return domain.Response{
		ID:                 snowflake.ID(d.ID).String(),
		TenantID:           snowflake.ID(d.TenantID).String(),
		Hostname:           d.Hostname,
		VerificationMethod: d.VerificationMethod,
		TargetValue:        d.TargetValue,
		Status:             d.Status,
		CertStatus:         d.CertStatus,
		CertIssuer:         d.CertIssuer,
		CertValidUntil:     d.CertValidUntil,
		LastCheckedAt:      d.LastCheckedAt,
		LastErrorKind:      d.LastErrorKind,
		LastErrorMessage:   d.LastErrorMessage,
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}
