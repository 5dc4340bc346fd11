package contract

import (
	"context"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/specification"
)

type SearchCacheRepository interface {
	Create(ctx context.Context, cache *entity.SearchCache) error
	Update(ctx context.Context, cache *entity.SearchCache) error
	// Upsert writes the whole per-session record, keyed by session key.
	Upsert(ctx context.Context, cache *entity.SearchCache) error
	DeleteBySessionKey(ctx context.Context, sessionKey string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SearchCache, error)
}
