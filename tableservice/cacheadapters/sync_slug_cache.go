package cacheadapters

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

// SyncSlugCache is an in-process SlugCache safe for concurrent use, e.g. by services shared between goroutines.
type SyncSlugCache struct {
	slugs *xsync.MapOf[int64, string]
}

func NewSyncSlugCache() *SyncSlugCache {
	return &SyncSlugCache{slugs: xsync.NewMapOf[int64, string]()}
}

func (c *SyncSlugCache) Get(_ context.Context, id int64) (string, bool, error) {
	slug, ok := c.slugs.Load(id)
	return slug, ok && slug != "", nil
}

// Set keeps the first slug cached for an identifier.
func (c *SyncSlugCache) Set(_ context.Context, id int64, slug string) error {
	c.slugs.LoadOrStore(id, slug)
	return nil
}

func (c *SyncSlugCache) Len() int {
	return c.slugs.Size()
}

var _ tableservice.SlugCache = (*SyncSlugCache)(nil)
