package acme

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
	"go.uber.org/zap"

	"github.com/linkrail/linkrail/internal/certificate/domain"
)

const providerName = "acme"

// Config holds the ACME account and challenge settings.
type Config struct {
	DirectoryURL string
	Email        string
	// HTTP01Addr is the host:port the challenge server binds to. Empty
	// means all interfaces on port 80.
	HTTP01Addr string
	KeyType    certcrypto.KeyType
}

func (c Config) withDefaults() Config {
	if c.DirectoryURL == "" {
		c.DirectoryURL = lego.LEDirectoryProduction
	}
	if c.KeyType == "" {
		c.KeyType = certcrypto.RSA2048
	}
	return c
}

type acmeClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	SetHTTP01Provider(provider challenge.Provider) error
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

type clientFactory func(*lego.Config) (acmeClient, error)

func defaultClientFactory(cfg *lego.Config) (acmeClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoAdapter{client: client}, nil
}

type legoAdapter struct {
	client *lego.Client
}

func (a *legoAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return a.client.Registration.Register(options)
}

func (a *legoAdapter) SetHTTP01Provider(provider challenge.Provider) error {
	return a.client.Challenge.SetHTTP01Provider(provider)
}

func (a *legoAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return a.client.Certificate.Obtain(request)
}

type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string                        { return u.email }
func (u *accountUser) GetRegistration() *registration.Resource { return u.registration }
func (u *accountUser) GetPrivateKey() crypto.PrivateKey        { return u.key }

// Issuer obtains publicly trusted certificates from an ACME CA using the
// HTTP-01 challenge. Certificates issued this way are valid for ~90 days.
type Issuer struct {
	cfg        Config
	factory    clientFactory
	accountKey func() (crypto.PrivateKey, error)
	log        *zap.Logger
}

// New builds an ACME issuer.
func New(cfg Config, log *zap.Logger) *Issuer {
	return &Issuer{
		cfg:     cfg.withDefaults(),
		factory: defaultClientFactory,
		accountKey: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
		log: log.Named("certificate.acme"),
	}
}

func (i *Issuer) Name() string { return providerName }

// Issue registers an account, serves the HTTP-01 challenge and obtains a
// bundled certificate for the hostname. The caller is expected to bound the
// call with a deadline.
func (i *Issuer) Issue(ctx context.Context, hostname string) (*domain.Certificate, error) {
	if i.cfg.Email == "" {
		return nil, domain.NewProviderError(providerName, domain.CategoryMisconfiguration,
			"acme account email is not configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, i.wrap(err)
	}

	key, err := i.accountKey()
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.CategoryGeneric,
			"generate account key", err)
	}

	user := &accountUser{email: i.cfg.Email, key: key}
	legoCfg := lego.NewConfig(user)
	legoCfg.CADirURL = i.cfg.DirectoryURL
	legoCfg.Certificate.KeyType = i.cfg.KeyType

	client, err := i.factory(legoCfg)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.CategoryMisconfiguration,
			"create acme client", err)
	}

	host, port, err := splitHTTP01Addr(i.cfg.HTTP01Addr)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.CategoryMisconfiguration,
			"invalid http-01 address", err)
	}
	if err := client.SetHTTP01Provider(http01.NewProviderServer(host, port)); err != nil {
		return nil, i.wrap(err)
	}

	reg, err := client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, i.wrap(err)
	}
	user.registration = reg

	if err := ctx.Err(); err != nil {
		return nil, i.wrap(err)
	}

	res, err := client.Obtain(certificate.ObtainRequest{
		Domains: []string{hostname},
		Bundle:  true,
	})
	if err != nil {
		return nil, i.wrap(err)
	}
	if res == nil || len(res.Certificate) == 0 {
		return nil, domain.NewProviderError(providerName, domain.CategoryGeneric,
			"empty certificate payload from acme server", nil)
	}

	leaf, chain, err := splitBundle(res.Certificate)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.CategoryGeneric,
			"parse issued certificate", err)
	}
	if len(res.IssuerCertificate) > 0 {
		chain = string(res.IssuerCertificate)
	}

	parsed, err := parseLeaf(leaf)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.CategoryGeneric,
			"decode issued certificate", err)
	}

	i.log.Info("certificate obtained",
		zap.String("hostname", hostname),
		zap.Time("not_after", parsed.NotAfter))

	return &domain.Certificate{
		Hostname:       hostname,
		CertificatePEM: leaf,
		PrivateKeyPEM:  string(res.PrivateKey),
		ChainPEM:       chain,
		Issuer:         parsed.Issuer.CommonName,
		ValidFrom:      parsed.NotBefore,
		ValidUntil:     parsed.NotAfter,
	}, nil
}

func (i *Issuer) wrap(err error) error {
	if pe, ok := domain.AsProviderError(err); ok {
		return pe
	}
	return domain.NewProviderError(providerName, domain.Categorize(err), "", err)
}

func splitHTTP01Addr(addr string) (string, string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", "80", nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", "", err
	}
	if port == "" {
		port = "80"
	}
	return host, port, nil
}

// splitBundle separates the leaf from any concatenated issuer certs.
func splitBundle(bundle []byte) (string, string, error) {
	block, rest := pem.Decode(bundle)
	if block == nil {
		return "", "", errors.New("no pem block in bundle")
	}
	leaf := string(pem.EncodeToMemory(block))
	return leaf, string(rest), nil
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
