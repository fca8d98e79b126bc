package cache

import (
	"context"

	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
)

// -----------------------------------------------------------------------------
// CachedProvider answers RowsFor from Redis and falls through to the wrapped
// provider on a miss or when the cache is disabled. Cached rows are the JSON
// form of the provider rows, so frames built from either are identical.
// -----------------------------------------------------------------------------

type CachedProvider struct {
	inner interfaces.IRowProvider
	cache *Cache
}

// -----------------------------------------------------------------------------

func NewCachedProvider(inner interfaces.IRowProvider, c *Cache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c}
}

// -----------------------------------------------------------------------------

func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// -----------------------------------------------------------------------------

func (p *CachedProvider) key(date civil.Date) string {
	return KeyProviderRows + p.inner.Name() + ":" + date.String()
}

// -----------------------------------------------------------------------------

func (p *CachedProvider) RowsFor(ctx context.Context, date civil.Date) ([]models.MRow, error) {
	var rows []models.MRow
	if p.cache.get(ctx, p.key(date), &rows) {
		if rows == nil {
			rows = []models.MRow{}
		}
		return rows, nil
	}

	rows, err := p.inner.RowsFor(ctx, date)
	if err != nil {
		return nil, err
	}
	p.cache.set(ctx, p.key(date), rows)
	return rows, nil
}
