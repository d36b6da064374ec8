package resolver

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/linkrail/linkrail/internal/dnscache"
	obsmetrics "github.com/linkrail/linkrail/internal/observability/metrics"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// Record types handled by the facade.
const (
	TypeTXT   = "TXT"
	TypeCNAME = "CNAME"
	TypeA     = "A"
)

const (
	DefaultTimeout    = 5 * time.Second
	defaultNameserver = "8.8.8.8:53"
)

// Lookup is the successful result of a resolution.
type Lookup struct {
	Records   []string
	FromCache bool
}

// Resolver performs TXT/CNAME/A lookups through the record cache with a
// bounded upstream timeout. Failures come back as *Error values.
type Resolver interface {
	ResolveTXT(ctx context.Context, domain string) (Lookup, error)
	ResolveCNAME(ctx context.Context, domain string) (Lookup, error)
	ResolveA(ctx context.Context, domain string) (Lookup, error)
}

// Exchanger is the wire transport behind the facade. Production uses a
// miekg/dns client; tests substitute a stub.
type Exchanger interface {
	Exchange(ctx context.Context, msg *dns.Msg, addr string) (*dns.Msg, error)
}

type clientExchanger struct {
	client *dns.Client
}

func (c *clientExchanger) Exchange(ctx context.Context, msg *dns.Msg, addr string) (*dns.Msg, error) {
	reply, _, err := c.client.ExchangeContext(ctx, msg, addr)
	return reply, err
}

// Config tunes the facade.
type Config struct {
	Timeout    time.Duration
	Nameserver string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(c.Nameserver) == "" {
		c.Nameserver = systemNameserver()
	} else if _, _, err := net.SplitHostPort(c.Nameserver); err != nil {
		c.Nameserver = net.JoinHostPort(c.Nameserver, "53")
	}
	return c
}

func systemNameserver() string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return defaultNameserver
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

type facade struct {
	cfg       Config
	cache     *dnscache.Cache
	exchanger Exchanger
	metrics   *obsmetrics.Metrics
	log       *zap.Logger
}

// New builds the production resolver facade.
func New(cfg Config, cache *dnscache.Cache, m *obsmetrics.Metrics, log *zap.Logger) Resolver {
	cfg = cfg.withDefaults()
	return &facade{
		cfg:   cfg,
		cache: cache,
		exchanger: &clientExchanger{client: &dns.Client{
			Timeout: cfg.Timeout,
		}},
		metrics: m,
		log:     log.Named("resolver"),
	}
}

// NewWithExchanger builds a facade over a custom transport.
func NewWithExchanger(cfg Config, cache *dnscache.Cache, exchanger Exchanger, m *obsmetrics.Metrics, log *zap.Logger) Resolver {
	return &facade{
		cfg:       cfg.withDefaults(),
		cache:     cache,
		exchanger: exchanger,
		metrics:   m,
		log:       log.Named("resolver"),
	}
}

func (f *facade) ResolveTXT(ctx context.Context, domain string) (Lookup, error) {
	return f.resolve(ctx, domain, TypeTXT, dns.TypeTXT)
}

func (f *facade) ResolveCNAME(ctx context.Context, domain string) (Lookup, error) {
	return f.resolve(ctx, domain, TypeCNAME, dns.TypeCNAME)
}

func (f *facade) ResolveA(ctx context.Context, domain string) (Lookup, error) {
	return f.resolve(ctx, domain, TypeA, dns.TypeA)
}

func (f *facade) resolve(ctx context.Context, domain, recordType string, qtype uint16) (Lookup, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !validDomain(domain) {
		err := newError(KindInvalidDomain, domain, recordType, "malformed domain name")
		f.observe(ctx, recordType, string(KindInvalidDomain), false)
		return Lookup{}, err
	}

	if records, ok := f.cache.Get(domain, recordType); ok {
		f.observe(ctx, recordType, "success", true)
		return Lookup{Records: records, FromCache: true}, nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	reply, err := f.exchanger.Exchange(ctx, msg, f.cfg.Nameserver)
	if err != nil {
		resErr := f.classifyTransportError(err, domain, recordType)
		f.observe(ctx, recordType, string(resErr.Kind), false)
		return Lookup{}, resErr
	}

	if resErr := classifyRcode(reply.Rcode, domain, recordType); resErr != nil {
		f.observe(ctx, recordType, string(resErr.Kind), false)
		return Lookup{}, resErr
	}

	records := extractRecords(reply, qtype)
	if len(records) == 0 {
		resErr := newError(KindRecordNotFound, domain, recordType, "no "+recordType+" records in answer")
		f.observe(ctx, recordType, string(resErr.Kind), false)
		return Lookup{}, resErr
	}

	f.cache.Put(domain, recordType, records, 0)
	f.observe(ctx, recordType, "success", false)
	return Lookup{Records: records, FromCache: false}, nil
}

func (f *facade) classifyTransportError(err error, domain, recordType string) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, domain, recordType, "lookup exceeded "+f.cfg.Timeout.String())
	case isTimeout(err):
		return newError(KindTimeout, domain, recordType, "lookup exceeded "+f.cfg.Timeout.String())
	case isNetworkError(err):
		return newError(KindNetworkError, domain, recordType, err.Error())
	default:
		return newError(KindServerUnavailable, domain, recordType, err.Error())
	}
}

func classifyRcode(rcode int, domain, recordType string) *Error {
	switch rcode {
	case dns.RcodeSuccess:
		return nil
	case dns.RcodeNameError:
		return newError(KindRecordNotFound, domain, recordType, "name does not exist")
	case dns.RcodeRefused, dns.RcodeServerFailure:
		return newError(KindServerUnavailable, domain, recordType, "server returned "+dns.RcodeToString[rcode])
	default:
		return newError(KindServerUnavailable, domain, recordType, "unexpected rcode "+dns.RcodeToString[rcode])
	}
}

func extractRecords(reply *dns.Msg, qtype uint16) []string {
	records := make([]string, 0, len(reply.Answer))
	for _, rr := range reply.Answer {
		switch record := rr.(type) {
		case *dns.TXT:
			if qtype == dns.TypeTXT {
				records = append(records, strings.Join(record.Txt, ""))
			}
		case *dns.CNAME:
			if qtype == dns.TypeCNAME {
				records = append(records, strings.TrimSuffix(record.Target, "."))
			}
		case *dns.A:
			if qtype == dns.TypeA {
				records = append(records, record.A.String())
			}
		}
	}
	return records
}

func validDomain(domain string) bool {
	if domain == "" || !strings.Contains(domain, ".") {
		return false
	}
	if strings.ContainsAny(domain, " \t/") {
		return false
	}
	_, ok := dns.IsDomainName(domain)
	return ok
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no route to host") ||
		strings.Contains(msg, "network is unreachable")
}

func (f *facade) observe(ctx context.Context, recordType, outcome string, fromCache bool) {
	f.metrics.RecordDNSLookup(ctx, recordType, outcome, fromCache)
}
