package mapper

import (
	"time"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/model"

	"gorm.io/datatypes"
)

type SearchCacheMapper struct{}

func NewSearchCacheMapper() *SearchCacheMapper {
	return &SearchCacheMapper{}
}

func (m *SearchCacheMapper) ToEntity(c *model.SearchCache) *entity.SearchCache {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.SearchCache{
		Id:         c.Id,
		SessionKey: c.SessionKey,
		Entries:    []byte(c.Entries),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *SearchCacheMapper) ToModel(c *entity.SearchCache) *model.SearchCache {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.SearchCache{
		Id:         c.Id,
		SessionKey: c.SessionKey,
		Entries:    datatypes.JSON(c.Entries),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}
