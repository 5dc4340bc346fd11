package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SearchCache holds one record per chat session: a jsonb map from query text
// to the cached knowledge-search result. Loaded and rewritten wholesale.
type SearchCache struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionKey string         `gorm:"type:varchar(128);not null;uniqueIndex"`
	Entries    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (SearchCache) TableName() string {
	return "search_caches"
}
