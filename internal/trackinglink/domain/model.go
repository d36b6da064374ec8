package domain

import "time"

type Offer struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	TenantID  int64     `json:"tenant_id" gorm:"column:tenant_id;not null;index:ix_offers_tenant"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Offer) TableName() string { return "offers" }

// TrackingLink is a short link under an offer. CustomDomain is denormalized
// onto every row so the redirect path never joins against custom_domains.
type TrackingLink struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	OfferID      int64     `json:"offer_id" gorm:"column:offer_id;not null;index:ix_tracking_links_offer"`
	Slug         string    `json:"slug" gorm:"type:text;not null;uniqueIndex:ux_tracking_links_slug"`
	TargetURL    string    `json:"target_url" gorm:"column:target_url;type:text;not null"`
	CustomDomain *string   `json:"custom_domain,omitempty" gorm:"column:custom_domain;type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TrackingLink) TableName() string { return "tracking_links" }
