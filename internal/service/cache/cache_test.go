package cache

import (
	"context"
	"testing"
	"time"

	pkgcache "GlassLens/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTTLCache(0)
	c.now = func() time.Time { return now }

	c.Set("a", []byte("1"), time.Second)
	c.Set("b", []byte("2"), 0)

	b, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), b)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestTTLCacheSweep(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTTLCache(0)
	c.now = func() time.Time { return now }
	c.Set("a", []byte("1"), time.Second)
	c.Set("b", []byte("2"), time.Minute)

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheEvictsSoonestExpiry(t *testing.T) {
	c := NewTTLCache(2)
	c.Set("long", []byte("1"), time.Hour)
	c.Set("short", []byte("2"), time.Second)
	c.Set("new", []byte("3"), time.Hour)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)
}

func TestSharedCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	defer mc.Close()
	s := NewSharedCache(mc, "")

	_, ok, err := s.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetBytes(ctx, "k", []byte{0x89, 'P', 'N', 'G'}, time.Minute))
	b, ok, err := s.GetBytes(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, b)
}

func TestTieredBackfillsLocal(t *testing.T) {
	ctx := context.Background()
	mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	defer mc.Close()
	shared := NewSharedCache(mc, "frame")
	require.NoError(t, shared.SetBytes(ctx, "k", []byte("frame"), time.Minute))

	local := NewTTLCache(8)
	tc := NewTiered(local, shared, time.Minute)
	b, ok, err := tc.GetBytes(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("frame"), b)
	assert.Equal(t, 1, local.Len())

	require.NoError(t, tc.SetBytes(ctx, "other", []byte("x"), time.Minute))
	_, ok, _ = shared.GetBytes(ctx, "other")
	assert.True(t, ok)
}
