package implementation

import (
	"context"
	"errors"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/mapper"
	"emoflow-be/internal/model"
	"emoflow-be/internal/repository/contract"
	"emoflow-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JournalRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JournalMapper
}

func NewJournalRepository(db *gorm.DB) contract.JournalRepository {
	return &JournalRepositoryImpl{
		db:     db,
		mapper: mapper.NewJournalMapper(),
	}
}

func (r *JournalRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *JournalRepositoryImpl) Create(ctx context.Context, journal *entity.Journal) error {
	m := r.mapper.ToModel(journal)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*journal = *r.mapper.ToEntity(m)
	return nil
}

func (r *JournalRepositoryImpl) Update(ctx context.Context, journal *entity.Journal) error {
	m := r.mapper.ToModel(journal)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*journal = *r.mapper.ToEntity(m)
	return nil
}

func (r *JournalRepositoryImpl) UpdateMemoryPoint(ctx context.Context, id uuid.UUID, memoryPoint string) error {
	return r.db.WithContext(ctx).
		Model(&model.Journal{}).
		Where("id = ?", id).
		Update("memory_point", memoryPoint).Error
}

func (r *JournalRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Journal{}, id).Error
}

func (r *JournalRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Journal, error) {
	var m model.Journal
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *JournalRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Journal, error) {
	var models []*model.Journal
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Journal, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *JournalRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Journal{}).Count(&count).Error
	return count, err
}
