package mapper

import (
	"time"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/model"

	"gorm.io/datatypes"
)

type SessionStateMapper struct{}

func NewSessionStateMapper() *SessionStateMapper {
	return &SessionStateMapper{}
}

func (m *SessionStateMapper) ToEntity(s *model.SessionState) *entity.SessionState {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.SessionState{
		Id:        s.Id,
		UserId:    s.UserId,
		SessionId: s.SessionId,
		Payload:   []byte(s.Payload),
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *SessionStateMapper) ToModel(s *entity.SessionState) *model.SessionState {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.SessionState{
		Id:        s.Id,
		UserId:    s.UserId,
		SessionId: s.SessionId,
		Payload:   datatypes.JSON(s.Payload),
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}
