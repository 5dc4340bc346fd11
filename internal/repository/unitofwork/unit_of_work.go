package unitofwork

import (
	"context"

	"emoflow-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionStateRepository() contract.SessionStateRepository
	JournalRepository() contract.JournalRepository
	SearchCacheRepository() contract.SearchCacheRepository
	KnowledgeEmbeddingRepository() contract.KnowledgeEmbeddingRepository
}
