package cacheadapters

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

const slugKeyPrefix = "tableservice:slug:"

// RedisSlugCache is a SlugCache stored in redis, shared by every service instance using the same
// namespace. Entries are written without expiry.
type RedisSlugCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisSlugCache creates a slug cache for one table; namespace is usually the table name.
func NewRedisSlugCache(client redis.UniversalClient, namespace string) *RedisSlugCache {
	return &RedisSlugCache{
		client:    client,
		keyPrefix: slugKeyPrefix + namespace + ":",
	}
}

func (c *RedisSlugCache) Get(ctx context.Context, id int64) (string, bool, error) {
	slug, err := c.client.Get(ctx, c.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return slug, slug != "", nil
}

func (c *RedisSlugCache) Set(ctx context.Context, id int64, slug string) error {
	return c.client.Set(ctx, c.key(id), slug, 0).Err()
}

func (c *RedisSlugCache) key(id int64) string {
	return c.keyPrefix + strconv.FormatInt(id, 10)
}

var _ tableservice.SlugCache = (*RedisSlugCache)(nil)
