package dnscache

import (
	"testing"
	"time"

	"github.com/linkrail/linkrail/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cache := New(Config{DefaultTTL: ttl, SweepInterval: time.Hour}, clk, zap.NewNop())
	t.Cleanup(cache.Stop)
	return cache, clk
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Put("Track.Example.Com.", "CNAME", []string{"domains.linkrail.io"}, 0)

	records, ok := cache.Get("track.example.com", "cname")
	require.True(t, ok, "expected fresh entry")
	assert.Equal(t, []string{"domains.linkrail.io"}, records)
}

func TestCacheExpiryAgainstClock(t *testing.T) {
	cache, clk := newTestCache(t, time.Minute)

	cache.Put("track.example.com", "CNAME", []string{"domains.linkrail.io"}, 0)

	clk.Advance(59 * time.Second)
	_, ok := cache.Get("track.example.com", "CNAME")
	assert.True(t, ok, "entry should still be fresh at 59s")

	clk.Advance(2 * time.Second)
	_, ok = cache.Get("track.example.com", "CNAME")
	assert.False(t, ok, "entry should be expired past the TTL")
}

func TestCacheOverwrite(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Put("track.example.com", "A", []string{"198.51.100.1"}, 0)
	cache.Put("track.example.com", "A", []string{"203.0.113.10"}, 0)

	records, ok := cache.Get("track.example.com", "A")
	require.True(t, ok)
	assert.Equal(t, []string{"203.0.113.10"}, records)
}

func TestInvalidateSingleType(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Put("track.example.com", "CNAME", []string{"domains.linkrail.io"}, 0)
	cache.Put("track.example.com", "A", []string{"203.0.113.10"}, 0)

	removed := cache.Invalidate("track.example.com", "CNAME")
	assert.Equal(t, 1, removed)

	_, ok := cache.Get("track.example.com", "CNAME")
	assert.False(t, ok)
	_, ok = cache.Get("track.example.com", "A")
	assert.True(t, ok, "other record types must survive a typed invalidation")
}

func TestInvalidateAllTypes(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Put("track.example.com", "CNAME", []string{"domains.linkrail.io"}, 0)
	cache.Put("track.example.com", "A", []string{"203.0.113.10"}, 0)
	cache.Put("other.example.com", "A", []string{"203.0.113.10"}, 0)

	removed := cache.Invalidate("track.example.com", "")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len(), "unrelated domain must survive")
}

func TestSweepRemovesElapsedEntries(t *testing.T) {
	cache, clk := newTestCache(t, time.Minute)

	cache.Put("a.example.com", "A", []string{"203.0.113.10"}, 0)
	cache.Put("b.example.com", "A", []string{"203.0.113.10"}, 10*time.Minute)

	clk.Advance(2 * time.Minute)
	removed := cache.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get("b.example.com", "A")
	assert.True(t, ok, "entry with longer per-entry TTL must survive the sweep")
}

func TestGetCopiesRecords(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Put("track.example.com", "TXT", []string{"token-1"}, 0)
	records, ok := cache.Get("track.example.com", "TXT")
	require.True(t, ok)

	records[0] = "mutated"
	fresh, ok := cache.Get("track.example.com", "TXT")
	require.True(t, ok)
	assert.Equal(t, "token-1", fresh[0], "callers must not be able to mutate cached records")
}
