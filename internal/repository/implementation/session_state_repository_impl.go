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

type SessionStateRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionStateMapper
}

func NewSessionStateRepository(db *gorm.DB) contract.SessionStateRepository {
	return &SessionStateRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionStateMapper(),
	}
}

func (r *SessionStateRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionStateRepositoryImpl) Create(ctx context.Context, state *entity.SessionState) error {
	m := r.mapper.ToModel(state)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*state = *r.mapper.ToEntity(m)
	return nil
}

func (r *SessionStateRepositoryImpl) Update(ctx context.Context, state *entity.SessionState) error {
	m := r.mapper.ToModel(state)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*state = *r.mapper.ToEntity(m)
	return nil
}

func (r *SessionStateRepositoryImpl) Deactivate(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.SessionState{}).
		Where("user_id = ? AND session_id = ? AND active = ?", userId, sessionId, true).
		Update("active", false).Error
}

func (r *SessionStateRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error) {
	var m model.SessionState
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SessionStateRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionState, error) {
	var models []*model.SessionState
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.SessionState, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *SessionStateRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.SessionState{}).Count(&count).Error
	return count, err
}
