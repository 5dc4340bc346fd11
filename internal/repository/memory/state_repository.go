package memory

import (
	"fmt"
	"time"

	"emoflow-be/pkg/tracker"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// StateRepository is the process-scoped cache of live session trackers.
// It is constructed once at startup and injected; there is no ambient
// global. Cross-process deployments must rely on the durable store.
type StateRepository struct {
	cache *cache.Cache
}

func NewStateRepository() *StateRepository {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &StateRepository{
		cache: c,
	}
}

func Key(userId uuid.UUID, sessionId uuid.UUID) string {
	return fmt.Sprintf("%s:%s", userId, sessionId)
}

func (r *StateRepository) Save(userId uuid.UUID, sessionId uuid.UUID, t *tracker.StateTracker) {
	r.cache.Set(Key(userId, sessionId), t, cache.DefaultExpiration)
}

func (r *StateRepository) Get(userId uuid.UUID, sessionId uuid.UUID) (*tracker.StateTracker, bool) {
	if x, found := r.cache.Get(Key(userId, sessionId)); found {
		return x.(*tracker.StateTracker), true
	}
	return nil, false
}

func (r *StateRepository) Delete(userId uuid.UUID, sessionId uuid.UUID) {
	r.cache.Delete(Key(userId, sessionId))
}

// Len reports the current number of cached sessions (for diagnostics).
func (r *StateRepository) Len() int {
	return r.cache.ItemCount()
}
