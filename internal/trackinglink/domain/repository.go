package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	CreateOffer(ctx context.Context, db *gorm.DB, offer *Offer) error
	FindOfferByID(ctx context.Context, db *gorm.DB, tenantID, id int64) (*Offer, error)
	OfferIDsByTenant(ctx context.Context, db *gorm.DB, tenantID int64) ([]int64, error)

	CreateLink(ctx context.Context, db *gorm.DB, link *TrackingLink) error
	FindLinksByOffer(ctx context.Context, db *gorm.DB, offerID, afterID int64, limit int) ([]TrackingLink, error)
	SetCustomDomainForOffers(ctx context.Context, db *gorm.DB, customDomain *string, offerIDs []int64) (int64, error)
}
