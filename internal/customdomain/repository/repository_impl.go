package repository

import (
	"context"

	"github.com/linkrail/linkrail/internal/customdomain/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `id, tenant_id, hostname, verification_method, ownership_token, target_value,
	 status, cert_status, certificate_pem, private_key_pem, chain_pem, cert_issuer,
	 cert_valid_from, cert_valid_until, last_checked_at, last_error_kind, last_error_message,
	 is_active, created_at, updated_at`

func (r *repo) Create(ctx context.Context, db *gorm.DB, d *domain.CustomDomain) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO custom_domains
		 (id, tenant_id, hostname, verification_method, ownership_token, target_value,
		  status, cert_status, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.TenantID,
		d.Hostname,
		d.VerificationMethod,
		d.OwnershipToken,
		d.TargetValue,
		d.Status,
		d.CertStatus,
		d.IsActive,
		d.CreatedAt,
		d.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id int64) (*domain.CustomDomain, error) {
	var d domain.CustomDomain
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM custom_domains WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB, tenantID int64) ([]domain.CustomDomain, error) {
	var items []domain.CustomDomain
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM custom_domains WHERE tenant_id = ? ORDER BY created_at ASC`,
		tenantID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindVerified(ctx context.Context, db *gorm.DB, tenantID int64) ([]domain.CustomDomain, error) {
	var items []domain.CustomDomain
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM custom_domains
		 WHERE tenant_id = ? AND status = ? AND is_active = ?
		 ORDER BY updated_at DESC`,
		tenantID,
		domain.StatusVerified,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindPending returns the stalest pending rows first so the poller spreads
// attention evenly.
func (r *repo) FindPending(ctx context.Context, db *gorm.DB, limit int) ([]domain.CustomDomain, error) {
	var items []domain.CustomDomain
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM custom_domains
		 WHERE status = ?
		 ORDER BY last_checked_at IS NOT NULL, last_checked_at ASC
		 LIMIT ?`,
		domain.StatusPending,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByTenant(ctx context.Context, db *gorm.DB, tenantID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM custom_domains WHERE tenant_id = ?`,
		tenantID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateVerification overwrites the verification outcome in one statement so
// a retried check never accumulates partial state.
func (r *repo) UpdateVerification(ctx context.Context, db *gorm.DB, d *domain.CustomDomain) error {
	return db.WithContext(ctx).Exec(
		`UPDATE custom_domains
		 SET status = ?, is_active = ?, last_checked_at = ?, last_error_kind = ?, last_error_message = ?, updated_at = ?
		 WHERE id = ?`,
		d.Status,
		d.IsActive,
		d.LastCheckedAt,
		d.LastErrorKind,
		d.LastErrorMessage,
		d.UpdatedAt,
		d.ID,
	).Error
}

func (r *repo) UpdateCertificate(ctx context.Context, db *gorm.DB, d *domain.CustomDomain) error {
	return db.WithContext(ctx).Exec(
		`UPDATE custom_domains
		 SET cert_status = ?, certificate_pem = ?, private_key_pem = ?, chain_pem = ?,
		     cert_issuer = ?, cert_valid_from = ?, cert_valid_until = ?, last_error_message = ?, updated_at = ?
		 WHERE id = ?`,
		d.CertStatus,
		d.CertificatePEM,
		d.PrivateKeyPEM,
		d.ChainPEM,
		d.CertIssuer,
		d.CertValidFrom,
		d.CertValidUntil,
		d.LastErrorMessage,
		d.UpdatedAt,
		d.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM custom_domains WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Error
}
