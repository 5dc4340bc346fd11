package mapper

import (
	"time"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JournalMapper struct{}

func NewJournalMapper() *JournalMapper {
	return &JournalMapper{}
}

func (m *JournalMapper) ToEntity(j *model.Journal) *entity.Journal {
	if j == nil {
		return nil
	}

	var deletedAt *time.Time
	if j.DeletedAt.Valid {
		t := j.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !j.UpdatedAt.IsZero() {
		t := j.UpdatedAt
		updatedAt = &t
	}

	return &entity.Journal{
		Id:             j.Id,
		UserId:         j.UserId,
		Title:          j.Title,
		Content:        j.Content,
		MemoryPoint:    j.MemoryPoint,
		ImageSummaries: []string(j.ImageSummaries),
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      j.DeletedAt.Valid,
	}
}

func (m *JournalMapper) ToModel(j *entity.Journal) *model.Journal {
	if j == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if j.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *j.DeletedAt, Valid: true}
	} else if j.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if j.UpdatedAt != nil {
		updatedAt = *j.UpdatedAt
	}

	return &model.Journal{
		Id:             j.Id,
		UserId:         j.UserId,
		Title:          j.Title,
		Content:        j.Content,
		MemoryPoint:    j.MemoryPoint,
		ImageSummaries: datatypes.JSONSlice[string](j.ImageSummaries),
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}
