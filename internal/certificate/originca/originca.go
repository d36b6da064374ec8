package originca

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/linkrail/linkrail/internal/certificate/domain"
)

const (
	providerName = "origin_ca"

	// Origin certificates are meant for traffic between the edge and the
	// origin, so the CA hands out long-lived material.
	requestedValidityDays = 365
)

// Config holds the origin CA endpoint and credentials.
type Config struct {
	Endpoint   string
	ServiceKey string
	Timeout    time.Duration
}

type issueRequest struct {
	Hostnames         []string `json:"hostnames"`
	RequestType       string   `json:"request_type"`
	RequestedValidity int      `json:"requested_validity"`
	CSR               string   `json:"csr"`
}

type issueResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result struct {
		ID          string `json:"id"`
		Certificate string `json:"certificate"`
		ExpiresOn   string `json:"expires_on"`
	} `json:"result"`
}

// Issuer requests origin certificates over the CA's REST API.
type Issuer struct {
	cfg    Config
	client *resty.Client
	log    *zap.Logger
}

// New builds an origin CA issuer.
func New(cfg Config, log *zap.Logger) *Issuer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Auth-User-Service-Key", cfg.ServiceKey)
	return &Issuer{
		cfg:    cfg,
		client: client,
		log:    log.Named("certificate.originca"),
	}
}

func (i *Issuer) Name() string { return providerName }

// Issue generates a keypair and CSR locally and exchanges the CSR for a
// long-lived origin certificate.
func (i *Issuer) Issue(ctx context.Context, hostname string) (*domain.Certificate, error) {
	if i.cfg.Endpoint == "" || i.cfg.ServiceKey == "" {
		return nil, domain.NewProviderError(providerName, domain.CategoryMisconfiguration,
			"origin ca endpoint or service key is not configured", nil)
	}

	key, csrPEM, err := newCSR(hostname)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.CategoryGeneric,
			"generate csr", err)
	}

	var out issueResponse
	resp, err := i.client.R().
		SetContext(ctx).
		SetBody(issueRequest{
			Hostnames:         []string{hostname},
			RequestType:       "origin-rsa",
			RequestedValidity: requestedValidityDays,
			CSR:               csrPEM,
		}).
		SetResult(&out).
		SetError(&out).
		Post(i.cfg.Endpoint)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.Categorize(err), "", err)
	}

	if resp.StatusCode() != http.StatusOK || !out.Success {
		msg := "origin ca request failed"
		if len(out.Errors) > 0 {
			msg = out.Errors[0].Message
		}
		return nil, domain.NewProviderError(providerName, categorizeStatus(resp.StatusCode(), msg), msg, nil)
	}
	if out.Result.Certificate == "" {
		return nil, domain.NewProviderError(providerName, domain.CategoryGeneric,
			"origin ca returned no certificate", nil)
	}

	parsed, err := parseLeaf(out.Result.Certificate)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.CategoryGeneric,
			"parse issued certificate", err)
	}

	i.log.Info("origin certificate issued",
		zap.String("hostname", hostname),
		zap.String("certificate_id", out.Result.ID),
		zap.Time("not_after", parsed.NotAfter))

	return &domain.Certificate{
		Hostname:       hostname,
		CertificatePEM: out.Result.Certificate,
		PrivateKeyPEM:  key,
		Issuer:         parsed.Issuer.CommonName,
		ValidFrom:      parsed.NotBefore,
		ValidUntil:     parsed.NotAfter,
	}, nil
}

func categorizeStatus(status int, msg string) string {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.CategoryRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.CategoryMisconfiguration
	case status >= 400 && status < 500:
		return domain.CategoryValidation
	case status >= 500:
		return domain.CategoryGeneric
	default:
		return domain.Categorize(errors.New(msg))
	}
}

func newCSR(hostname string) (string, string, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", err
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: hostname},
		DNSNames: []string{hostname},
	}, key)
	if err != nil {
		return "", "", err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	csrPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: der,
	})
	return string(keyPEM), string(csrPEM), nil
}

func parseLeaf(leafPEM string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(leafPEM))
	if block == nil {
		return nil, errors.New("no pem block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, nil
}
