package entity

import (
	"time"

	"github.com/google/uuid"
)

// CacheEntry is one cached knowledge-search result.
type CacheEntry struct {
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

type SearchCache struct {
	Id         uuid.UUID
	SessionKey string
	Entries    []byte // jsonb map[query]CacheEntry, parsed by the cache layer
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
