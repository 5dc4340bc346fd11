package unitofwork

import (
	"context"
	"fmt"

	"emoflow-be/internal/repository/contract"
	"emoflow-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // The active transaction, nil outside Begin/Commit
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) SessionStateRepository() contract.SessionStateRepository {
	return implementation.NewSessionStateRepository(u.getDB())
}

func (u *UnitOfWorkImpl) JournalRepository() contract.JournalRepository {
	return implementation.NewJournalRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SearchCacheRepository() contract.SearchCacheRepository {
	return implementation.NewSearchCacheRepository(u.getDB())
}

func (u *UnitOfWorkImpl) KnowledgeEmbeddingRepository() contract.KnowledgeEmbeddingRepository {
	return implementation.NewKnowledgeEmbeddingRepository(u.getDB())
}
