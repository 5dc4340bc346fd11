package contract

import (
	"context"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionStateRepository interface {
	Create(ctx context.Context, state *entity.SessionState) error
	Update(ctx context.Context, state *entity.SessionState) error
	// Deactivate soft-closes the active record for a (user, session) pair.
	Deactivate(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionState, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
