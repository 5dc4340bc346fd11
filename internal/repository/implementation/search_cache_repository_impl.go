package implementation

import (
	"context"
	"errors"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/mapper"
	"emoflow-be/internal/model"
	"emoflow-be/internal/repository/contract"
	"emoflow-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SearchCacheRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SearchCacheMapper
}

func NewSearchCacheRepository(db *gorm.DB) contract.SearchCacheRepository {
	return &SearchCacheRepositoryImpl{
		db:     db,
		mapper: mapper.NewSearchCacheMapper(),
	}
}

func (r *SearchCacheRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SearchCacheRepositoryImpl) Create(ctx context.Context, cache *entity.SearchCache) error {
	m := r.mapper.ToModel(cache)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*cache = *r.mapper.ToEntity(m)
	return nil
}

func (r *SearchCacheRepositoryImpl) Update(ctx context.Context, cache *entity.SearchCache) error {
	m := r.mapper.ToModel(cache)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*cache = *r.mapper.ToEntity(m)
	return nil
}

func (r *SearchCacheRepositoryImpl) Upsert(ctx context.Context, cache *entity.SearchCache) error {
	m := r.mapper.ToModel(cache)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"entries", "updated_at"}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*cache = *r.mapper.ToEntity(m)
	return nil
}

func (r *SearchCacheRepositoryImpl) DeleteBySessionKey(ctx context.Context, sessionKey string) error {
	return r.db.WithContext(ctx).
		Where("session_key = ?", sessionKey).
		Delete(&model.SearchCache{}).Error
}

func (r *SearchCacheRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SearchCache, error) {
	var m model.SearchCache
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
