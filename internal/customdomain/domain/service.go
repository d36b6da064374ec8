package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Delete(ctx context.Context, id string) error

	Verify(ctx context.Context, id string) (*VerifyResult, error)
	RequestCertificate(ctx context.Context, id string) (*CertResult, error)
	DNSInstructions(ctx context.Context, id string) (*Instructions, error)
	ValidateCertificate(ctx context.Context, id string) (*ValidationResult, error)

	Stats(ctx context.Context) (*Stats, error)
	BestDomain(ctx context.Context) (*Response, error)
	VerifiedDomains(ctx context.Context) ([]Response, error)

	ClearDNSCache(ctx context.Context, hostname, recordType string) (int, error)

	// ReverifyPending re-runs verification for stale pending domains across
	// all tenants. Used by the background poller.
	ReverifyPending(ctx context.Context, limit int) (int, error)
}

type CreateRequest struct {
	Hostname string `json:"hostname"`
	Method   string `json:"verification_method"`
}

type Response struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Hostname           string     `json:"hostname"`
	VerificationMethod string     `json:"verification_method"`
	TargetValue        string     `json:"target_value"`
	Status             string     `json:"status"`
	CertStatus         string     `json:"cert_status"`
	CertIssuer         *string    `json:"cert_issuer,omitempty"`
	CertValidUntil     *time.Time `json:"cert_valid_until,omitempty"`
	LastCheckedAt      *time.Time `json:"last_checked_at,omitempty"`
	LastErrorKind      *string    `json:"last_error_kind,omitempty"`
	LastErrorMessage   *string    `json:"last_error_message,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type VerifyResult struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type CertResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Instructions struct {
	RecordType   string `json:"record_type"`
	RecordName   string `json:"record_name"`
	RecordValue  string `json:"record_value"`
	Instructions string `json:"instructions"`
}

type ValidationResult struct {
	Reachable bool       `json:"reachable"`
	Valid     bool       `json:"valid"`
	Issuer    string     `json:"issuer,omitempty"`
	NotAfter  *time.Time `json:"not_after,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}

type Stats struct {
	Total          int64 `json:"total"`
	Verified       int64 `json:"verified"`
	Pending        int64 `json:"pending"`
	Failed         int64 `json:"failed"`
	WithSSL        int64 `json:"with_ssl"`
	SSLPending     int64 `json:"ssl_pending"`
	SSLFailed      int64 `json:"ssl_failed"`
	RemainingSlots int64 `json:"remaining_slots"`
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidHostname = errors.New("invalid_hostname")
	ErrInvalidMethod   = errors.New("invalid_verification_method")
	ErrInvalidID       = errors.New("invalid_id")
	ErrQuotaExceeded   = errors.New("domain_quota_exceeded")
	ErrHostnameTaken   = errors.New("hostname_taken")
	ErrNotFound        = errors.New("domain_not_found")
)
