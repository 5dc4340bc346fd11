package contract

import (
	"context"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredKnowledgeEmbedding wraps a knowledge chunk with its similarity score
type ScoredKnowledgeEmbedding struct {
	Embedding  *entity.KnowledgeEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type KnowledgeEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.KnowledgeEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.KnowledgeEmbedding) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeEmbedding, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore returns chunks with similarity scores, filtered by threshold
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredKnowledgeEmbedding, error)
}
