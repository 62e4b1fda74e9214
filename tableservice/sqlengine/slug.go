package sqlengine

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

// SlugIn resolves a slug to a record identifier.
//
// A slug embedding its identifier ("5~red-shoe") is decoded without touching storage, a non numeric
// identifier is a validation error. Any other slug is looked up by equality on the slug column;
// false means no record carries it.
func (s *Service) SlugIn(ctx context.Context, value string) (id int64, found bool, err error) {
	observer, ctx := s.observe(ctx, operationSlugIn)
	defer func() { observer.finish(err, nil) }()

	id, embedded, err := tableservice.ParseSlugID(value)
	if embedded {
		return id, err == nil, err
	}

	query := s.conn.builder.
		From(s.tableName).
		Select(goqu.C(s.idColumn)).
		Where(goqu.C(s.slugColumn).Eq(value))

	raw, found, err := s.fetchSingle(ctx, query, operationSlugIn)
	if err != nil || !found {
		return 0, false, err
	}

	id, err = tableservice.ToInt64(raw)
	if err != nil {
		s.logError(ctx, logMsgScanRowFailed, err, logAttrTable, s.tableName)
		return 0, false, err
	}

	return id, true, nil
}

// SlugOut resolves the slug of a record.
//
// Resolution order: the slug cache, the slug supplied with a record fragment, the stored slug column,
// and finally the fallback "<id>~<webalized name>". Every resolved slug is cached and stays
// authoritative for the lifetime of the cache. False means the record does not exist, nothing is cached then.
func (s *Service) SlugOut(ctx context.Context, source tableservice.SlugSource) (slug string, found bool, err error) {
	observer, ctx := s.observe(ctx, operationSlugOut)
	defer func() { observer.finish(err, nil) }()

	id := source.ID()

	if cached, ok := s.cachedSlug(ctx, id); ok {
		return cached, true, nil
	}

	if inline, ok := source.InlineSlug(); ok {
		s.cacheSlug(ctx, id, inline)
		return inline, true, nil
	}

	query := s.conn.builder.
		From(s.tableName).
		Select(goqu.C(s.nameColumn), goqu.C(s.slugColumn)).
		Where(goqu.C(s.idColumn).Eq(id))

	row, found, err := s.fetch(ctx, query, operationSlugOut)
	if err != nil || !found {
		return "", false, err
	}

	slug = row.String(s.slugColumn)
	if slug == "" {
		slug = tableservice.FallbackSlug(id, row.String(s.nameColumn))
	}

	s.cacheSlug(ctx, id, slug)

	return slug, true, nil
}

// cachedSlug treats a failing slug cache as a miss.
func (s *Service) cachedSlug(ctx context.Context, id int64) (string, bool) {
	slug, ok, err := s.slugCache.Get(ctx, id)
	if err != nil {
		s.logWarn(ctx, logMsgSlugCacheFailed, err, logAttrTable, s.tableName)
	}

	if err != nil || !ok {
		s.incrementCounter(ctx, metricSlugCacheMisses, s.labels(operationSlugOut))
		return "", false
	}

	s.incrementCounter(ctx, metricSlugCacheHits, s.labels(operationSlugOut))

	return slug, true
}

func (s *Service) cacheSlug(ctx context.Context, id int64, slug string) {
	if err := s.slugCache.Set(ctx, id, slug); err != nil {
		s.logWarn(ctx, logMsgSlugCacheFailed, err, logAttrTable, s.tableName)
	}
}
