package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/memory"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/tracker"

	"github.com/google/uuid"
)

// Manager owns the lifecycle of state trackers: an injected in-memory cache
// fronting the durable session-state store, keyed by (user, session).
type Manager struct {
	stateRepo *memory.StateRepository
	logger    *log.Logger
}

func NewManager(stateRepo *memory.StateRepository, logger *log.Logger) *Manager {
	return &Manager{
		stateRepo: stateRepo,
		logger:    logger,
	}
}

// GetOrCreate returns the live tracker for (user, session): cache hit, else
// rehydrated from the active durable record, else a fresh empty tracker.
// The cache is always populated before returning.
func (m *Manager) GetOrCreate(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) (*tracker.StateTracker, error) {
	if t, found := m.stateRepo.Get(userId, sessionId); found {
		return t, nil
	}

	t := tracker.NewStateTracker()

	record, err := uow.SessionStateRepository().FindOne(ctx,
		specification.ByUserAndSession{UserID: userId, SessionID: sessionId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}
	if record != nil {
		var state tracker.State
		if err := json.Unmarshal(record.Payload, &state); err != nil {
			// A broken payload means a fresh start, not a failed turn.
			m.logger.Printf("[SESSION] corrupted payload for %s, starting empty: %v", memory.Key(userId, sessionId), err)
		} else {
			t.Restore(state)
		}
	}

	m.stateRepo.Save(userId, sessionId, t)
	return t, nil
}

// Save persists the tracker. The in-memory cache is updated first and
// unconditionally, so concurrent same-process readers see the latest state
// even while the durable write is in flight. A durable failure rolls the
// transaction back and surfaces to the caller; the cache stays updated -
// live-session correctness is preferred over persistence durability here.
func (m *Manager) Save(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID, t *tracker.StateTracker) error {
	m.stateRepo.Save(userId, sessionId, t)

	payload, err := json.Marshal(t.Snapshot())
	if err != nil {
		return fmt.Errorf("serialize session state: %w", err)
	}

	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}

	if err := m.upsert(ctx, uow, userId, sessionId, payload); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			m.logger.Printf("[SESSION] rollback failed: %v", rbErr)
		}
		return fmt.Errorf("persist session state: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit session state: %w", err)
	}
	return nil
}

func (m *Manager) upsert(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID, payload []byte) error {
	repo := uow.SessionStateRepository()

	record, err := repo.FindOne(ctx,
		specification.ByUserAndSession{UserID: userId, SessionID: sessionId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return err
	}

	if record != nil {
		record.Payload = payload
		return repo.Update(ctx, record)
	}

	return repo.Create(ctx, &entity.SessionState{
		UserId:    userId,
		SessionId: sessionId,
		Payload:   payload,
		Active:    true,
	})
}

// Clear soft-closes the session: the durable record is marked inactive
// (never physically deleted, the history stays auditable) and the cache
// entry is evicted.
func (m *Manager) Clear(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) error {
	if err := uow.SessionStateRepository().Deactivate(ctx, userId, sessionId); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	m.stateRepo.Delete(userId, sessionId)
	return nil
}
