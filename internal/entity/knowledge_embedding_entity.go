package entity

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeEmbedding struct {
	Id             uuid.UUID
	Document       string
	EmbeddingValue []float32
	Source         string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
