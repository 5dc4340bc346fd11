package mapper

import (
	"encoding/json"
	"time"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type KnowledgeEmbeddingMapper struct{}

func NewKnowledgeEmbeddingMapper() *KnowledgeEmbeddingMapper {
	return &KnowledgeEmbeddingMapper{}
}

func (m *KnowledgeEmbeddingMapper) ToEntity(k *model.KnowledgeEmbedding) *entity.KnowledgeEmbedding {
	if k == nil {
		return nil
	}

	var deletedAt *time.Time
	if k.DeletedAt.Valid {
		t := k.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !k.UpdatedAt.IsZero() {
		t := k.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(k.Metadata) > 0 {
		// Metadata is opaque; a malformed blob just reads as empty.
		_ = json.Unmarshal(k.Metadata, &metadata)
	}

	return &entity.KnowledgeEmbedding{
		Id:             k.Id,
		Document:       k.Document,
		EmbeddingValue: k.EmbeddingValue.Slice(),
		Source:         k.Source,
		Metadata:       metadata,
		CreatedAt:      k.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      k.DeletedAt.Valid,
	}
}

func (m *KnowledgeEmbeddingMapper) ToModel(k *entity.KnowledgeEmbedding) *model.KnowledgeEmbedding {
	if k == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if k.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *k.DeletedAt, Valid: true}
	} else if k.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if k.UpdatedAt != nil {
		updatedAt = *k.UpdatedAt
	}

	var metadata datatypes.JSON
	if k.Metadata != nil {
		if raw, err := json.Marshal(k.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	return &model.KnowledgeEmbedding{
		Id:             k.Id,
		Document:       k.Document,
		EmbeddingValue: pgvector.NewVector(k.EmbeddingValue),
		Source:         k.Source,
		Metadata:       metadata,
		CreatedAt:      k.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}
