package entity

import (
	"time"

	"github.com/google/uuid"
)

type Journal struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	Title          string
	Content        string
	MemoryPoint    *string
	ImageSummaries []string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// HasMemoryPoint reports whether a non-empty memory point already exists.
func (j *Journal) HasMemoryPoint() bool {
	return j.MemoryPoint != nil && *j.MemoryPoint != ""
}
