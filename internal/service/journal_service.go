package service

import (
	"context"
	"time"

	"emoflow-be/internal/dto"
	"emoflow-be/internal/entity"
	"emoflow-be/internal/pkg/logger"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/events"
	pktNats "emoflow-be/pkg/nats"

	"github.com/google/uuid"
)

type IJournalService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateJournalRequest) (*dto.JournalResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.JournalResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.JournalResponse, error)
}

type journalService struct {
	uowFactory     unitofwork.RepositoryFactory
	memoryService  IMemoryService
	eventPublisher *pktNats.Publisher // optional
	logger         logger.ILogger
}

func NewJournalService(
	uowFactory unitofwork.RepositoryFactory,
	memoryService IMemoryService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IJournalService {
	return &journalService{
		uowFactory:     uowFactory,
		memoryService:  memoryService,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// Create persists the finalized entry, then immediately schedules async
// memory-point extraction. The entry is readable right away; MemoryPoint
// stays nil until the worker finishes.
func (c *journalService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateJournalRequest) (*dto.JournalResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	journal := entity.Journal{
		Id:             uuid.New(),
		UserId:         userId,
		Title:          req.Title,
		Content:        req.Content,
		ImageSummaries: req.ImageSummaries,
		CreatedAt:      time.Now(),
	}

	if err := uow.JournalRepository().Create(ctx, &journal); err != nil {
		return nil, err
	}

	accepted := c.memoryService.Enqueue(journal.Id)

	if c.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "JOURNAL_CREATED",
			Data: map[string]interface{}{
				"journal_id": journal.Id,
				"user_id":    userId,
				"title":      journal.Title,
			},
			OccurredAt: time.Now(),
		}
		if err := c.eventPublisher.Publish(ctx, evt); err != nil {
			c.logger.Warn("JournalService", "Failed to publish JOURNAL_CREATED event", map[string]interface{}{
				"journal_id": journal.Id,
				"error":      err.Error(),
			})
		}
	}

	c.logger.Info("JournalService", "Journal created", map[string]interface{}{
		"journal_id":      journal.Id,
		"user_id":         userId,
		"memory_accepted": accepted,
	})

	return toJournalResponse(&journal, accepted), nil
}

func (c *journalService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.JournalResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	journal, err := uow.JournalRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		return nil, nil // Not found
	}
	return toJournalResponse(journal, false), nil
}

func (c *journalService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.JournalResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	journals, err := uow.JournalRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.JournalResponse, 0, len(journals))
	for _, journal := range journals {
		result = append(result, toJournalResponse(journal, false))
	}
	return result, nil
}

func toJournalResponse(journal *entity.Journal, accepted bool) *dto.JournalResponse {
	return &dto.JournalResponse{
		Id:             journal.Id,
		Title:          journal.Title,
		Content:        journal.Content,
		MemoryPoint:    journal.MemoryPoint,
		MemoryAccepted: accepted,
		CreatedAt:      journal.CreatedAt,
	}
}
