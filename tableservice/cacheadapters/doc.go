// Package cacheadapters provide Buffer and SlugCache implementations for services that are shared
// between goroutines or between processes.
//
// The defaults of a service are plain maps without locking. Use:
//   - SyncBuffer: an unbounded concurrency-safe buffer (xsync.MapOf)
//   - LRUBuffer: a bounded concurrency-safe buffer (golang-lru)
//   - RedisSlugCache: a slug cache shared by all service instances using the same redis keyspace
//
// Usage example:
//
//	buffer, _ := cacheadapters.NewLRUBuffer(1024)
//	slugs := cacheadapters.NewRedisSlugCache(redisClient, "products")
//
//	service, _ := sqlengine.NewService(conn, "products",
//		sqlengine.WithBuffer(buffer),
//		sqlengine.WithSlugCache(slugs),
//	)
package cacheadapters
