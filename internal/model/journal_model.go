package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Journal is a finalized diary entry. MemoryPoint is derived asynchronously
// after creation and stays nil until the worker fills it in.
type Journal struct {
	Id             uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Title          string                      `gorm:"type:varchar(255)"`
	Content        string                      `gorm:"type:text;not null"`
	MemoryPoint    *string                     `gorm:"type:text"`
	ImageSummaries datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt              `gorm:"index"`
}

func (Journal) TableName() string {
	return "journals"
}
