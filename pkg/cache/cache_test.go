package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Risk float64 `json:"risk"`
	Tag  string  `json:"tag"`
}

func newTestMemory(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(append([]MemoryOption{WithMemoryCleanup(0)}, opts...)...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, "p", point{Risk: 0.42, Tag: "a"}, time.Minute))

	var got point
	require.NoError(t, mc.Get(ctx, "p", &got))
	assert.Equal(t, point{Risk: 0.42, Tag: "a"}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "theme", "light", 0))
	require.NoError(t, mc.Get(ctx, "theme", &s))
	assert.Equal(t, "light", s)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)
	now := time.Unix(1000, 0)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", 1, time.Second))
	ok, _ := mc.Exists(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	var v int
	assert.True(t, errors.Is(mc.Get(ctx, "k", &v), ErrCacheMiss))
	assert.Zero(t, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t, WithMemoryMaxSize(2))
	now := time.Unix(1000, 0)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	now = now.Add(time.Second)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v)) // a is now fresher than b
	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestMemoryCacheIncrement(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)

	n, err := mc.Increment(ctx, "decisions:APPROVE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _ = mc.Increment(ctx, "decisions:APPROVE")
	assert.Equal(t, int64(2), n)

	var stored int64
	require.NoError(t, mc.Get(ctx, "decisions:APPROVE", &stored))
	assert.Equal(t, int64(2), stored)

	require.NoError(t, mc.Set(ctx, "word", "x", 0))
	_, err = mc.Increment(ctx, "word")
	assert.Error(t, err)
}

func TestLayeredCachePromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := newTestMemory(t)
	lc := NewLayeredCache(l2, 10, time.Minute)
	t.Cleanup(func() { _ = lc.l1.Close() })

	require.NoError(t, l2.Set(ctx, "only-l2", point{Risk: 0.9}, 0))

	var got point
	require.NoError(t, lc.Get(ctx, "only-l2", &got))
	assert.Equal(t, 0.9, got.Risk)
	assert.Equal(t, 1, lc.l1.Len())

	require.NoError(t, lc.Delete(ctx, "only-l2"))
	assert.ErrorIs(t, lc.Get(ctx, "only-l2", &got), ErrCacheMiss)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)
	calls := 0
	load := func(context.Context) (point, error) {
		calls++
		return point{Tag: "loaded"}, nil
	}

	v, hit, err := GetOrLoad(ctx, mc, "x", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "loaded", v.Tag)

	v, hit, err = GetOrLoad(ctx, mc, "x", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	_, _, err = GetOrLoad(ctx, mc, "y", time.Minute, func(context.Context) (point, error) { return point{}, assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "frame:3:png:dark", GenerateKey("frame", 3, "png", "dark"))
	assert.Equal(t, HashFloats([]float64{1, 2}), HashFloats([]float64{1, 2}))
	assert.NotEqual(t, HashFloats([]float64{1, 2}), HashFloats([]float64{2, 1}))
	assert.Len(t, HashKey("abc"), 32)
}
