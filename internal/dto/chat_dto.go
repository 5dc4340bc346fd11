package dto

import (
	"github.com/google/uuid"

	"emoflow-be/pkg/ai/pipeline"
)

type SendChatRequest struct {
	SessionId  uuid.UUID `json:"session_id" validate:"required"`
	RoundIndex int       `json:"round_index" validate:"min=1"`
	Question   string    `json:"question" validate:"required"`
}

type SendChatResponse struct {
	Answer string                 `json:"answer"`
	Debug  pipeline.DebugEnvelope `json:"debug"`
}

type CloseSessionRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}
