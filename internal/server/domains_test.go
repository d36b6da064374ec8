package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	cddomain "github.com/linkrail/linkrail/internal/customdomain/domain"
	tldomain "github.com/linkrail/linkrail/internal/trackinglink/domain"
	"github.com/linkrail/linkrail/pkg/db/pagination"
	"github.com/linkrail/linkrail/pkg/tenantctx"
)

type fakeDomainService struct {
	createCalls  int
	lastCreate   cddomain.CreateRequest
	lastTenantID int64
	createErr    error

	verifyCalls  int
	verifyResult *cddomain.VerifyResult

	cacheHostname string
	cacheType     string
}

func (f *fakeDomainService) Create(ctx context.Context, req cddomain.CreateRequest) (*cddomain.Response, error) {
	f.createCalls++
	f.lastCreate = req
	f.lastTenantID, _ = tenantctx.TenantID(ctx)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &cddomain.Response{
		ID:                 "1",
		Hostname:           req.Hostname,
		VerificationMethod: req.Method,
		Status:             cddomain.StatusPending,
	}, nil
}

func (f *fakeDomainService) List(ctx context.Context) ([]cddomain.Response, error) {
	_ = ctx
	return nil, nil
}

func (f *fakeDomainService) Delete(ctx context.Context, id string) error {
	_ = ctx
	_ = id
	return nil
}

func (f *fakeDomainService) Verify(ctx context.Context, id string) (*cddomain.VerifyResult, error) {
	f.verifyCalls++
	_ = ctx
	_ = id
	if f.verifyResult != nil {
		return f.verifyResult, nil
	}
	return &cddomain.VerifyResult{Success: true, Status: cddomain.StatusVerified}, nil
}

func (f *fakeDomainService) RequestCertificate(ctx context.Context, id string) (*cddomain.CertResult, error) {
	_ = ctx
	_ = id
	return &cddomain.CertResult{Success: true, Message: "certificate issued"}, nil
}

func (f *fakeDomainService) DNSInstructions(ctx context.Context, id string) (*cddomain.Instructions, error) {
	_ = ctx
	_ = id
	return &cddomain.Instructions{RecordType: "CNAME"}, nil
}

func (f *fakeDomainService) ValidateCertificate(ctx context.Context, id string) (*cddomain.ValidationResult, error) {
	_ = ctx
	_ = id
	return &cddomain.ValidationResult{}, nil
}

func (f *fakeDomainService) Stats(ctx context.Context) (*cddomain.Stats, error) {
	_ = ctx
	return &cddomain.Stats{Total: 2, Verified: 1}, nil
}

func (f *fakeDomainService) BestDomain(ctx context.Context) (*cddomain.Response, error) {
	_ = ctx
	return nil, cddomain.ErrNotFound
}

func (f *fakeDomainService) VerifiedDomains(ctx context.Context) ([]cddomain.Response, error) {
	_ = ctx
	return nil, nil
}

func (f *fakeDomainService) ClearDNSCache(ctx context.Context, hostname, recordType string) (int, error) {
	_ = ctx
	f.cacheHostname = hostname
	f.cacheType = recordType
	return 1, nil
}

func (f *fakeDomainService) ReverifyPending(ctx context.Context, limit int) (int, error) {
	_ = ctx
	_ = limit
	return 0, nil
}

type fakeLinkService struct {
	slugTaken bool
}

func (f *fakeLinkService) CreateOffer(ctx context.Context, req tldomain.CreateOfferRequest) (*tldomain.OfferResponse, error) {
	_ = ctx
	return &tldomain.OfferResponse{ID: "10", Name: req.Name}, nil
}

func (f *fakeLinkService) CreateLink(ctx context.Context, req tldomain.CreateLinkRequest) (*tldomain.LinkResponse, error) {
	_ = ctx
	if f.slugTaken {
		return nil, tldomain.ErrSlugTaken
	}
	return &tldomain.LinkResponse{ID: "11", OfferID: req.OfferID, Slug: req.Slug, TargetURL: req.TargetURL}, nil
}

func (f *fakeLinkService) ListLinks(ctx context.Context, offerID string, page pagination.Pagination) (*tldomain.LinkPage, error) {
	_ = ctx
	_ = offerID
	_ = page
	return &tldomain.LinkPage{}, nil
}

func (f *fakeLinkService) Propagate(ctx context.Context, tenantID int64, hostname *string) (int64, error) {
	_ = ctx
	_ = tenantID
	_ = hostname
	return 0, nil
}

func newTestRouter(domainSvc cddomain.Service, linkSvc tldomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine:    r,
		domainSvc: domainSvc,
		linkSvc:   linkSvc,
	}
	srv.registerAPIRoutes()

	return r
}

func doJSON(router *gin.Engine, method, path, body, tenant string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tenant != "" {
		req.Header.Set(HeaderTenant, tenant)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateDomainHandler(t *testing.T) {
	domainSvc := &fakeDomainService{}
	router := newTestRouter(domainSvc, &fakeLinkService{})

	resp := doJSON(router, http.MethodPost, "/api/v1/domains", `{"hostname":"track.example.com","verification_method":"cname"}`, "42")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if domainSvc.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", domainSvc.createCalls)
	}
	if domainSvc.lastCreate.Hostname != "track.example.com" {
		t.Fatalf("unexpected hostname: %s", domainSvc.lastCreate.Hostname)
	}
	if domainSvc.lastTenantID != 42 {
		t.Fatalf("expected tenant 42 in context, got %d", domainSvc.lastTenantID)
	}
}

func TestCreateDomainRejectsMissingTenant(t *testing.T) {
	domainSvc := &fakeDomainService{}
	router := newTestRouter(domainSvc, &fakeLinkService{})

	resp := doJSON(router, http.MethodPost, "/api/v1/domains", `{"hostname":"track.example.com","verification_method":"cname"}`, "")

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if domainSvc.createCalls != 0 {
		t.Fatal("expected service not to be called without a tenant")
	}
}

func TestCreateDomainQuotaExceededReturns403(t *testing.T) {
	domainSvc := &fakeDomainService{createErr: cddomain.ErrQuotaExceeded}
	router := newTestRouter(domainSvc, &fakeLinkService{})

	resp := doJSON(router, http.MethodPost, "/api/v1/domains", `{"hostname":"track.example.com","verification_method":"cname"}`, "42")

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Error.Type != "forbidden" {
		t.Fatalf("unexpected error type: %s", body.Error.Type)
	}
}

func TestCreateDomainHostnameTakenReturns409(t *testing.T) {
	domainSvc := &fakeDomainService{createErr: cddomain.ErrHostnameTaken}
	router := newTestRouter(domainSvc, &fakeLinkService{})

	resp := doJSON(router, http.MethodPost, "/api/v1/domains", `{"hostname":"track.example.com","verification_method":"cname"}`, "42")

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestCreateDomainInvalidHostnameReturns400(t *testing.T) {
	domainSvc := &fakeDomainService{createErr: cddomain.ErrInvalidHostname}
	router := newTestRouter(domainSvc, &fakeLinkService{})

	resp := doJSON(router, http.MethodPost, "/api/v1/domains", `{"hostname":"","verification_method":"cname"}`, "42")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Error.Type != "validation_error" {
		t.Fatalf("unexpected error type: %s", body.Error.Type)
	}
	if len(body.Error.Errors) != 1 || body.Error.Errors[0].Code != "invalid_hostname" {
		t.Fatalf("unexpected validation errors: %+v", body.Error.Errors)
	}
}

func TestVerifyDomainHandler(t *testing.T) {
	domainSvc := &fakeDomainService{
		verifyResult: &cddomain.VerifyResult{
			Success:      false,
			Status:       cddomain.StatusError,
			ErrorKind:    "TIMEOUT",
			ErrorMessage: "dns lookup timed out",
		},
	}
	router := newTestRouter(domainSvc, &fakeLinkService{})

	resp := doJSON(router, http.MethodPost, "/api/v1/domains/1/verify", "", "42")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if domainSvc.verifyCalls != 1 {
		t.Fatalf("expected one verify call, got %d", domainSvc.verifyCalls)
	}

	var body struct {
		Data cddomain.VerifyResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Data.Success {
		t.Fatal("expected verify result to report failure")
	}
	if body.Data.ErrorKind != "TIMEOUT" {
		t.Fatalf("unexpected error kind: %s", body.Data.ErrorKind)
	}
}

func TestBestDomainNotFoundReturns404(t *testing.T) {
	router := newTestRouter(&fakeDomainService{}, &fakeLinkService{})

	resp := doJSON(router, http.MethodGet, "/api/v1/domains/best", "", "42")

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestClearDNSCacheHandler(t *testing.T) {
	domainSvc := &fakeDomainService{}
	router := newTestRouter(domainSvc, &fakeLinkService{})

	resp := doJSON(router, http.MethodDelete, "/api/v1/dns-cache?hostname=track.example.com&type=cname", "", "42")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if domainSvc.cacheHostname != "track.example.com" || domainSvc.cacheType != "cname" {
		t.Fatalf("unexpected cache invalidation args: %s %s", domainSvc.cacheHostname, domainSvc.cacheType)
	}
}

func TestCreateLinkSlugTakenReturns409(t *testing.T) {
	router := newTestRouter(&fakeDomainService{}, &fakeLinkService{slugTaken: true})

	resp := doJSON(router, http.MethodPost, "/api/v1/offers/10/links", `{"slug":"summer","target_url":"https://example.com"}`, "42")

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}
