package contract

import (
	"context"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JournalRepository interface {
	Create(ctx context.Context, journal *entity.Journal) error
	Update(ctx context.Context, journal *entity.Journal) error
	// UpdateMemoryPoint writes only the derived memory point field.
	UpdateMemoryPoint(ctx context.Context, id uuid.UUID, memoryPoint string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Journal, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Journal, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
