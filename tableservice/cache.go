package tableservice

import "context"

// Buffer is the short-lived result cache of a service.
// It is cleared in full whenever an insert, update or delete completes.
type Buffer interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Clear()
}

// SlugCache maps record identifiers to resolved slugs. Entries never expire: once a slug is
// cached for an identifier it is authoritative for the lifetime of the cache.
type SlugCache interface {
	Get(ctx context.Context, id int64) (string, bool, error)
	Set(ctx context.Context, id int64, slug string) error
}

/***** MapBuffer *****/

// MapBuffer is the default Buffer, a plain map without locking.
type MapBuffer struct {
	entries map[string]any
}

func NewMapBuffer() *MapBuffer {
	return &MapBuffer{entries: make(map[string]any)}
}

func (b *MapBuffer) Get(key string) (any, bool) {
	value, ok := b.entries[key]
	return value, ok
}

func (b *MapBuffer) Set(key string, value any) {
	b.entries[key] = value
}

func (b *MapBuffer) Clear() {
	clear(b.entries)
}

// Len returns the number of buffered entries.
func (b *MapBuffer) Len() int {
	return len(b.entries)
}

/***** MapSlugCache *****/

// MapSlugCache is the default SlugCache, a plain map without locking, scoped to one service instance.
type MapSlugCache struct {
	slugs map[int64]string
}

func NewMapSlugCache() *MapSlugCache {
	return &MapSlugCache{slugs: make(map[int64]string)}
}

func (c *MapSlugCache) Get(_ context.Context, id int64) (string, bool, error) {
	slug, ok := c.slugs[id]
	return slug, ok && slug != "", nil
}

func (c *MapSlugCache) Set(_ context.Context, id int64, slug string) error {
	c.slugs[id] = slug
	return nil
}

var _ Buffer = (*MapBuffer)(nil)
var _ SlugCache = (*MapSlugCache)(nil)
