package repository

import (
	"context"

	"github.com/linkrail/linkrail/internal/trackinglink/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateOffer(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO offers (id, tenant_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		offer.ID,
		offer.TenantID,
		offer.Name,
		offer.CreatedAt,
		offer.UpdatedAt,
	).Error
}

func (r *repo) FindOfferByID(ctx context.Context, db *gorm.DB, tenantID, id int64) (*domain.Offer, error) {
	var o domain.Offer
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, created_at, updated_at
		 FROM offers WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) OfferIDsByTenant(ctx context.Context, db *gorm.DB, tenantID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM offers WHERE tenant_id = ? ORDER BY id ASC`,
		tenantID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) CreateLink(ctx context.Context, db *gorm.DB, link *domain.TrackingLink) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tracking_links (id, offer_id, slug, target_url, custom_domain, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.ID,
		link.OfferID,
		link.Slug,
		link.TargetURL,
		link.CustomDomain,
		link.CreatedAt,
		link.UpdatedAt,
	).Error
}

// FindLinksByOffer pages in id order. Snowflake ids are time-ordered, so the
// keyset cursor walks links oldest first.
func (r *repo) FindLinksByOffer(ctx context.Context, db *gorm.DB, offerID, afterID int64, limit int) ([]domain.TrackingLink, error) {
	var items []domain.TrackingLink
	err := db.WithContext(ctx).Raw(
		`SELECT id, offer_id, slug, target_url, custom_domain, created_at, updated_at
		 FROM tracking_links WHERE offer_id = ? AND id > ? ORDER BY id ASC LIMIT ?`,
		offerID,
		afterID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SetCustomDomainForOffers rewrites the denormalized hostname in one
// statement across all affected links.
func (r *repo) SetCustomDomainForOffers(ctx context.Context, db *gorm.DB, customDomain *string, offerIDs []int64) (int64, error) {
	if len(offerIDs) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE tracking_links SET custom_domain = ? WHERE offer_id IN (?)`,
		customDomain,
		offerIDs,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
