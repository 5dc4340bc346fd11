package search

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/internal/repository/unitofwork"
)

// Cache is the durable, session-scoped store of prior knowledge-search
// results: one record per session holding a query -> result map, loaded and
// rewritten wholesale on every access. Entries never expire on their own;
// Clear drops a whole session's record.
type Cache struct {
	logger *log.Logger
}

func NewCache(logger *log.Logger) *Cache {
	return &Cache{logger: logger}
}

// Get returns the cached result for (session, query). A missing record or
// entry is a plain miss, never an error to the caller.
func (c *Cache) Get(ctx context.Context, uow unitofwork.UnitOfWork, sessionKey string, query string) (string, bool) {
	entries := c.load(ctx, uow, sessionKey)
	entry, ok := entries[query]
	if !ok {
		return "", false
	}
	return entry.Result, true
}

// Put stores the result under (session, query), last write wins.
func (c *Cache) Put(ctx context.Context, uow unitofwork.UnitOfWork, sessionKey string, query string, result string) {
	entries := c.load(ctx, uow, sessionKey)
	entries[query] = entity.CacheEntry{
		Result:    result,
		Timestamp: time.Now(),
	}
	c.store(ctx, uow, sessionKey, entries)
}

// Clear drops the session's whole cache record.
func (c *Cache) Clear(ctx context.Context, uow unitofwork.UnitOfWork, sessionKey string) {
	if err := uow.SearchCacheRepository().DeleteBySessionKey(ctx, sessionKey); err != nil {
		c.logger.Printf("[CACHE] clear failed for session %s: %v", sessionKey, err)
	}
}

// SearchWithCache is cache-first: on hit the stored result is returned
// immediately; on miss searchFn runs and its result is persisted only when
// the call succeeded with non-empty text.
func (c *Cache) SearchWithCache(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	sessionKey string,
	query string,
	searchFn func(ctx context.Context, query string) (string, error),
) (string, error) {
	if cached, ok := c.Get(ctx, uow, sessionKey, query); ok {
		c.logger.Printf("[CACHE] hit for session %s query %q", sessionKey, query)
		return cached, nil
	}

	result, err := searchFn(ctx, query)
	if err != nil {
		return "", err
	}
	if result != "" {
		c.Put(ctx, uow, sessionKey, query, result)
	}
	return result, nil
}

// load fetches and decodes the session's record. A corrupted payload is
// renamed aside under a ".backup" key instead of crashing the caller, and
// reads as an empty cache.
func (c *Cache) load(ctx context.Context, uow unitofwork.UnitOfWork, sessionKey string) map[string]entity.CacheEntry {
	entries := make(map[string]entity.CacheEntry)

	record, err := uow.SearchCacheRepository().FindOne(ctx, specification.BySessionKey{SessionKey: sessionKey})
	if err != nil {
		c.logger.Printf("[CACHE] load failed for session %s: %v", sessionKey, err)
		return entries
	}
	if record == nil || len(record.Entries) == 0 {
		return entries
	}

	if err := json.Unmarshal(record.Entries, &entries); err != nil {
		c.logger.Printf("[CACHE] corrupted record for session %s, moving aside: %v", sessionKey, err)
		record.SessionKey = sessionKey + ".backup"
		if updateErr := uow.SearchCacheRepository().Update(ctx, record); updateErr != nil {
			c.logger.Printf("[CACHE] failed to move corrupted record aside: %v", updateErr)
		}
		return make(map[string]entity.CacheEntry)
	}

	return entries
}

func (c *Cache) store(ctx context.Context, uow unitofwork.UnitOfWork, sessionKey string, entries map[string]entity.CacheEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		c.logger.Printf("[CACHE] marshal failed for session %s: %v", sessionKey, err)
		return
	}

	record := &entity.SearchCache{
		SessionKey: sessionKey,
		Entries:    raw,
	}
	if err := uow.SearchCacheRepository().Upsert(ctx, record); err != nil {
		// Caching is best-effort; a failed write only costs a re-search.
		c.logger.Printf("[CACHE] store failed for session %s: %v", sessionKey, err)
	}
}
