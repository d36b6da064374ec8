package domain

import "time"

// Lifecycle states. Error is retriable, not terminal.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusError    = "error"
)

// Certificate states gated behind StatusVerified.
const (
	CertStatusNone    = "none"
	CertStatusPending = "pending"
	CertStatusIssued  = "issued"
	CertStatusFailed  = "failed"
)

// Verification methods. The enumeration is open so a TXT based variant can
// be added without touching the orchestration.
const (
	MethodCNAME   = "cname"
	MethodARecord = "a_record"
)

type CustomDomain struct {
	ID                 int64      `json:"id" gorm:"primaryKey"`
	TenantID           int64      `json:"tenant_id" gorm:"column:tenant_id;not null;index:ix_custom_domains_tenant"`
	Hostname           string     `json:"hostname" gorm:"type:text;not null;uniqueIndex:ux_custom_domains_hostname"`
	VerificationMethod string     `json:"verification_method" gorm:"column:verification_method;type:text;not null"`
	OwnershipToken     string     `json:"ownership_token" gorm:"column:ownership_token;type:text;not null"`
	TargetValue        string     `json:"target_value" gorm:"column:target_value;type:text;not null"`
	Status             string     `json:"status" gorm:"type:text;not null;default:pending"`
	CertStatus         string     `json:"cert_status" gorm:"column:cert_status;type:text;not null;default:none"`
	CertificatePEM     *string    `json:"-" gorm:"column:certificate_pem;type:text"`
	PrivateKeyPEM      *string    `json:"-" gorm:"column:private_key_pem;type:text"`
	ChainPEM           *string    `json:"-" gorm:"column:chain_pem;type:text"`
	CertIssuer         *string    `json:"cert_issuer,omitempty" gorm:"column:cert_issuer;type:text"`
	CertValidFrom      *time.Time `json:"cert_valid_from,omitempty" gorm:"column:cert_valid_from"`
	CertValidUntil     *time.Time `json:"cert_valid_until,omitempty" gorm:"column:cert_valid_until"`
	LastCheckedAt      *time.Time `json:"last_checked_at,omitempty" gorm:"column:last_checked_at"`
	LastErrorKind      *string    `json:"last_error_kind,omitempty" gorm:"column:last_error_kind;type:text"`
	LastErrorMessage   *string    `json:"last_error_message,omitempty" gorm:"column:last_error_message;type:text"`
	IsActive           bool       `json:"is_active" gorm:"column:is_active;not null;default:false"`
	CreatedAt          time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomDomain) TableName() string { return "custom_domains" }

func ValidMethod(method string) bool {
	return method == MethodCNAME || method == MethodARecord
}
