package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByUserAndSession scopes a query to one (user, session) pair.
type ByUserAndSession struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
}

func (s ByUserAndSession) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND session_id = ?", s.UserID, s.SessionID)
}

// ActiveOnly keeps only sessions that have not been closed.
type ActiveOnly struct{}

func (s ActiveOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("active = ?", true)
}

// BySessionKey filters search-cache records by their session key.
type BySessionKey struct {
	SessionKey string
}

func (s BySessionKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_key = ?", s.SessionKey)
}

// WithoutMemoryPoint selects journals whose memory point is still missing.
type WithoutMemoryPoint struct{}

func (s WithoutMemoryPoint) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("memory_point IS NULL OR memory_point = ''")
}
