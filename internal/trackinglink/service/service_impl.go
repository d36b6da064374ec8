package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/linkrail/linkrail/internal/clock"
	obsmetrics "github.com/linkrail/linkrail/internal/observability/metrics"
	"github.com/linkrail/linkrail/internal/trackinglink/domain"
	"github.com/linkrail/linkrail/pkg/db"
	"github.com/linkrail/linkrail/pkg/db/pagination"
	"github.com/linkrail/linkrail/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clk     clock.Clock
	repo    domain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("trackinglink.service"),
		genID:   p.GenID,
		clk:     p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateOffer(ctx context.Context, req domain.CreateOfferRequest) (*domain.OfferResponse, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clk.Now()
	offer := &domain.Offer{
		ID:        s.genID.Generate().Int64(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateOffer(ctx, s.db, offer); err != nil {
		return nil, err
	}

	resp := toOfferResponse(offer)
	return &resp, nil
}

func (s *Service) CreateLink(ctx context.Context, req domain.CreateLinkRequest) (*domain.LinkResponse, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	offerID, err := snowflake.ParseString(strings.TrimSpace(req.OfferID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		return nil, domain.ErrInvalidSlug
	}
	target := strings.TrimSpace(req.TargetURL)
	if target == "" {
		return nil, domain.ErrInvalidTarget
	}

	offer, err := s.repo.FindOfferByID(ctx, s.db, tenantID, offerID.Int64())
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, domain.ErrOfferNotFound
	}

	now := s.clk.Now()
	link := &domain.TrackingLink{
		ID:        s.genID.Generate().Int64(),
		OfferID:   offer.ID,
		Slug:      slug,
		TargetURL: target,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateLink(ctx, s.db, link); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	resp := toLinkResponse(link)
	return &resp, nil
}

func (s *Service) ListLinks(ctx context.Context, offerID string, page pagination.Pagination) (*domain.LinkPage, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	id, err := snowflake.ParseString(strings.TrimSpace(offerID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var afterID int64
	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		after, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		afterID = after.Int64()
	}

	offer, err := s.repo.FindOfferByID(ctx, s.db, tenantID, id.Int64())
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, domain.ErrOfferNotFound
	}

	limit := page.Limit()
	items, err := s.repo.FindLinksByOffer(ctx, s.db, offer.ID, afterID, limit+1)
	if err != nil {
		return nil, err
	}

	items, info, err := pagination.BuildPage(items, limit, func(l *domain.TrackingLink) string {
		return snowflake.ID(l.ID).String()
	})
	if err != nil {
		return nil, err
	}

	links := make([]domain.LinkResponse, 0, len(items))
	for i := range items {
		links = append(links, toLinkResponse(&items[i]))
	}
	return &domain.LinkPage{Links: links, PageInfo: info}, nil
}

func (s *Service) Propagate(ctx context.Context, tenantID int64, hostname *string) (int64, error) {
	if tenantID == 0 {
		return 0, domain.ErrInvalidTenant
	}

	offerIDs, err := s.repo.OfferIDsByTenant(ctx, s.db, tenantID)
	if err != nil {
		return 0, err
	}
	if len(offerIDs) == 0 {
		return 0, nil
	}

	updated, err := s.repo.SetCustomDomainForOffers(ctx, s.db, hostname, offerIDs)
	if err != nil {
		return 0, err
	}

	s.metrics.RecordLinkPropagation(ctx)
	s.log.Info("custom domain propagated",
		zap.Int64("tenant_id", tenantID),
		zap.Int("offers", len(offerIDs)),
		zap.Int64("links_updated", updated))
	return updated, nil
}

func toOfferResponse(o *domain.Offer) domain.OfferResponse {
	return domain.OfferResponse{
		ID:        snowflake.ID(o.ID).String(),
		TenantID:  snowflake.ID(o.TenantID).String(),
		Name:      o.Name,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func toLinkResponse(l *domain.TrackingLink) domain.LinkResponse {
	return domain.LinkResponse{
		ID:           snowflake.ID(l.ID).String(),
		OfferID:      snowflake.ID(l.OfferID).String(),
		Slug:         l.Slug,
		TargetURL:    l.TargetURL,
		CustomDomain: l.CustomDomain,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}
