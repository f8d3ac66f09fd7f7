package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "GlassLens/pkg/cache"
)

// SharedCache stores frames in a pkg/cache.Service so that replicas
// behind a load balancer can reuse each other's renders.
type SharedCache struct {
	svc    pkgcache.Service
	prefix string
}

func NewSharedCache(svc pkgcache.Service, prefix string) *SharedCache {
	if prefix == "" {
		prefix = "frame"
	}
	return &SharedCache{svc: svc, prefix: prefix}
}

func (s *SharedCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	var b []byte
	err := s.svc.Get(ctx, pkgcache.GenerateKey(s.prefix, key), &b)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *SharedCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.svc.Set(ctx, pkgcache.GenerateKey(s.prefix, key), value, ttl)
}

// Tiered checks the local cache first and backfills it from the shared one.
type Tiered struct {
	local    *TTLCache
	shared   BytesCache
	localTTL time.Duration
}

// NewTiered keeps backfilled frames locally for localTTL.
func NewTiered(local *TTLCache, shared BytesCache, localTTL time.Duration) *Tiered {
	return &Tiered{local: local, shared: shared, localTTL: localTTL}
}

func (t *Tiered) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok := t.local.Get(key); ok {
		return b, true, nil
	}
	if t.shared == nil {
		return nil, false, nil
	}
	b, ok, err := t.shared.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	t.local.Set(key, b, t.localTTL)
	return b, true, nil
}

func (t *Tiered) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	t.local.Set(key, value, ttl)
	if t.shared == nil {
		return nil
	}
	return t.shared.SetBytes(ctx, key, value, ttl)
}
