package domain

import (
	"context"
	"errors"
	"time"

	"github.com/linkrail/linkrail/pkg/db/pagination"
)

type Service interface {
	CreateOffer(ctx context.Context, req CreateOfferRequest) (*OfferResponse, error)
	CreateLink(ctx context.Context, req CreateLinkRequest) (*LinkResponse, error)
	ListLinks(ctx context.Context, offerID string, page pagination.Pagination) (*LinkPage, error)

	// Propagate rewrites custom_domain on every tracking link owned by the
	// tenant. A nil hostname clears the column back to the shared domain.
	Propagate(ctx context.Context, tenantID int64, hostname *string) (int64, error)
}

type CreateOfferRequest struct {
	Name string `json:"name"`
}

type CreateLinkRequest struct {
	OfferID   string `json:"offer_id"`
	Slug      string `json:"slug"`
	TargetURL string `json:"target_url"`
}

type OfferResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LinkPage struct {
	Links    []LinkResponse      `json:"links"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type LinkResponse struct {
	ID           string    `json:"id"`
	OfferID      string    `json:"offer_id"`
	Slug         string    `json:"slug"`
	TargetURL    string    `json:"target_url"`
	CustomDomain *string   `json:"custom_domain,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidSlug      = errors.New("invalid_slug")
	ErrInvalidTarget    = errors.New("invalid_target_url")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrOfferNotFound    = errors.New("offer_not_found")
	ErrSlugTaken        = errors.New("slug_taken")
)
