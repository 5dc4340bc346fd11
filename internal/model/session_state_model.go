package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionState is the durable record of one (user, session) dialogue state.
// Payload holds the serialized tracker snapshot. Sessions are never hard
// deleted by this subsystem; Active=false marks a closed session.
type SessionState struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null;index:idx_session_states_user_session"`
	SessionId uuid.UUID      `gorm:"type:uuid;not null;index:idx_session_states_user_session"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	Active    bool           `gorm:"not null;default:true;index"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (SessionState) TableName() string {
	return "session_states"
}
