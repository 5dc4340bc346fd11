package entity

import (
	"time"

	"github.com/google/uuid"
)

type SessionState struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	SessionId uuid.UUID
	Payload   []byte // serialized tracker snapshot (JSON)
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}
