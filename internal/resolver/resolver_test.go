package resolver

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/linkrail/linkrail/internal/clock"
	"github.com/linkrail/linkrail/internal/dnscache"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExchanger struct {
	mu    sync.Mutex
	calls int

	reply *dns.Msg
	err   error
	block bool
}

func (s *stubExchanger) Exchange(ctx context.Context, msg *dns.Msg, addr string) (*dns.Msg, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}

	reply := s.reply.Copy()
	reply.SetReply(msg)
	reply.Answer = s.reply.Answer
	reply.Rcode = s.reply.Rcode
	return reply, nil
}

func (s *stubExchanger) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func cnameReply(target string) *dns.Msg {
	reply := new(dns.Msg)
	reply.Answer = []dns.RR{&dns.CNAME{
		Hdr:    dns.RR_Header{Name: "track.example.com.", Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 300},
		Target: target,
	}}
	return reply
}

func aReply(ips ...string) *dns.Msg {
	reply := new(dns.Msg)
	for _, ip := range ips {
		reply.Answer = append(reply.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: "track.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300},
			A:   net.ParseIP(ip),
		})
	}
	return reply
}

func newTestResolver(t *testing.T, exchanger Exchanger, ttl time.Duration) (Resolver, *dnscache.Cache, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cache := dnscache.New(dnscache.Config{DefaultTTL: ttl, SweepInterval: time.Hour}, clk, zap.NewNop())
	t.Cleanup(cache.Stop)
	res := NewWithExchanger(Config{Timeout: 200 * time.Millisecond, Nameserver: "127.0.0.1:53"}, cache, exchanger, nil, zap.NewNop())
	return res, cache, clk
}

func TestResolveCNAMEPopulatesCache(t *testing.T) {
	stub := &stubExchanger{reply: cnameReply("domains.linkrail.io.")}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	first, err := res.ResolveCNAME(context.Background(), "track.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"domains.linkrail.io"}, first.Records)
	assert.False(t, first.FromCache)

	second, err := res.ResolveCNAME(context.Background(), "track.example.com")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, 1, stub.Calls(), "cache hit must not reach the upstream")
}

func TestResolveCacheExpiryRequeries(t *testing.T) {
	stub := &stubExchanger{reply: aReply("203.0.113.10")}
	res, _, clk := newTestResolver(t, stub, time.Minute)

	_, err := res.ResolveA(context.Background(), "track.example.com")
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)

	lookup, err := res.ResolveA(context.Background(), "track.example.com")
	require.NoError(t, err)
	assert.False(t, lookup.FromCache)
	assert.Equal(t, 2, stub.Calls(), "expired entry must trigger a fresh query")
}

func TestResolvePrimedCacheHit(t *testing.T) {
	stub := &stubExchanger{reply: cnameReply("ignored.example.com.")}
	res, cache, _ := newTestResolver(t, stub, time.Minute)

	cache.Put("track.example.com", TypeCNAME, []string{"domains.linkrail.io"}, 0)

	lookup, err := res.ResolveCNAME(context.Background(), "track.example.com")
	require.NoError(t, err)
	assert.True(t, lookup.FromCache)
	assert.Equal(t, []string{"domains.linkrail.io"}, lookup.Records)
	assert.Equal(t, 0, stub.Calls())
}

func TestResolveTimeoutClassification(t *testing.T) {
	stub := &stubExchanger{block: true}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	start := time.Now()
	_, err := res.ResolveCNAME(context.Background(), "track.example.com")
	elapsed := time.Since(start)

	require.Error(t, err)
	resErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, resErr.Kind)
	assert.Less(t, elapsed, time.Second, "lookup must not hang past the configured timeout")
}

func TestResolveNameErrorClassification(t *testing.T) {
	reply := new(dns.Msg)
	reply.Rcode = dns.RcodeNameError
	stub := &stubExchanger{reply: reply}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	_, err := res.ResolveA(context.Background(), "missing.example.com")
	resErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindRecordNotFound, resErr.Kind)
	assert.Equal(t, TypeA, resErr.RecordType)
}

func TestResolveEmptyAnswerClassification(t *testing.T) {
	stub := &stubExchanger{reply: new(dns.Msg)}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	_, err := res.ResolveTXT(context.Background(), "bare.example.com")
	resErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindRecordNotFound, resErr.Kind)
}

func TestResolveRefusedClassification(t *testing.T) {
	reply := new(dns.Msg)
	reply.Rcode = dns.RcodeRefused
	stub := &stubExchanger{reply: reply}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	_, err := res.ResolveCNAME(context.Background(), "track.example.com")
	resErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindServerUnavailable, resErr.Kind)
}

func TestResolveNetworkErrorClassification(t *testing.T) {
	stub := &stubExchanger{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	_, err := res.ResolveA(context.Background(), "track.example.com")
	resErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetworkError, resErr.Kind)
}

func TestResolveInvalidDomain(t *testing.T) {
	stub := &stubExchanger{reply: new(dns.Msg)}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	for _, domain := range []string{"", "nodots", "bad domain.example.com", "bad/path.example.com"} {
		_, err := res.ResolveA(context.Background(), domain)
		resErr, ok := AsError(err)
		require.True(t, ok, "domain %q", domain)
		assert.Equal(t, KindInvalidDomain, resErr.Kind, "domain %q", domain)
	}
	assert.Equal(t, 0, stub.Calls(), "malformed names must not be queried")
}

func TestResolveFailureIsNotCached(t *testing.T) {
	reply := new(dns.Msg)
	reply.Rcode = dns.RcodeNameError
	stub := &stubExchanger{reply: reply}
	res, _, _ := newTestResolver(t, stub, time.Minute)

	_, err := res.ResolveCNAME(context.Background(), "track.example.com")
	require.Error(t, err)
	_, err = res.ResolveCNAME(context.Background(), "track.example.com")
	require.Error(t, err)
	assert.Equal(t, 2, stub.Calls(), "failures must always re-query")
}
