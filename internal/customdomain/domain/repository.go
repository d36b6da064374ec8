package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, d *CustomDomain) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id int64) (*CustomDomain, error)
	FindAll(ctx context.Context, db *gorm.DB, tenantID int64) ([]CustomDomain, error)
	FindVerified(ctx context.Context, db *gorm.DB, tenantID int64) ([]CustomDomain, error)
	FindPending(ctx context.Context, db *gorm.DB, limit int) ([]CustomDomain, error)
	CountByTenant(ctx context.Context, db *gorm.DB, tenantID int64) (int64, error)
	UpdateVerification(ctx context.Context, db *gorm.DB, d *CustomDomain) error
	UpdateCertificate(ctx context.Context, db *gorm.DB, d *CustomDomain) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id int64) error
}
