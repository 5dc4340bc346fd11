package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/pkg/logger"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/events"
	"emoflow-be/pkg/llm"
	pktNats "emoflow-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IMemoryService interface {
	// Enqueue schedules async memory-point extraction for a journal.
	// Returns false when the journal is already queued or the queue is down.
	Enqueue(journalId uuid.UUID) bool

	// ExtractMemory runs extraction synchronously, folding in image-analysis
	// summaries, and persists the result. Idempotent.
	ExtractMemory(ctx context.Context, journalId uuid.UUID) (string, error)

	// QueueDepth reports how many journals are queued or in flight.
	QueueDepth() int

	// Shutdown drains in-flight work, then stops the worker.
	Shutdown(ctx context.Context) error
}

// memoryPointMaxRunes clamps the derived sentence; the model is told to stay
// short but is not trusted to.
const memoryPointMaxRunes = 50

type memoryService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	llmProvider    llm.Provider
	eventPublisher *pktNats.Publisher // optional, nil disables events
	logger         logger.ILogger

	startOnce sync.Once
	startErr  error
	stop      context.CancelFunc

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

func NewMemoryService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.Provider,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IMemoryService {
	return &memoryService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		llmProvider:    llmProvider,
		eventPublisher: eventPublisher,
		logger:         log,
		inFlight:       make(map[uuid.UUID]bool),
	}
}

// Enqueue lazily starts the single worker on first use, then publishes the
// journal id. A journal already queued or in flight is rejected so the same
// entry is never processed twice concurrently.
func (s *memoryService) Enqueue(journalId uuid.UUID) bool {
	s.startOnce.Do(s.startWorker)
	if s.startErr != nil {
		s.logger.Error("MemoryService", "Worker unavailable, rejecting task", map[string]interface{}{
			"journal_id": journalId,
			"error":      s.startErr.Error(),
		})
		return false
	}

	s.mu.Lock()
	if s.inFlight[journalId] {
		s.mu.Unlock()
		s.logger.Info("MemoryService", "Journal already queued, skipping", map[string]interface{}{
			"journal_id": journalId,
		})
		return false
	}
	s.inFlight[journalId] = true
	s.mu.Unlock()

	msg := message.NewMessage(watermill.NewUUID(), []byte(journalId.String()))
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.release(journalId)
		s.logger.Error("MemoryService", "Failed to publish task", map[string]interface{}{
			"journal_id": journalId,
			"error":      err.Error(),
		})
		return false
	}
	return true
}

func (s *memoryService) startWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel

	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		cancel()
		s.startErr = err
		return
	}

	go func() {
		for msg := range messages {
			s.processMessage(msg)
			msg.Ack()
		}
	}()
}

func (s *memoryService) processMessage(msg *message.Message) {
	journalId, err := uuid.Parse(string(msg.Payload))
	if err != nil {
		s.logger.Error("MemoryService", "Malformed task payload, dropping", map[string]interface{}{
			"payload": string(msg.Payload),
		})
		return
	}
	defer s.release(journalId)

	// worker outlives request contexts on purpose
	ctx := context.Background()
	if _, err := s.extract(ctx, journalId, false); err != nil {
		// Failed tasks are dropped, not retried: the backfill tool picks up
		// journals that still have no memory point.
		s.logger.Error("MemoryService", "Extraction failed", map[string]interface{}{
			"journal_id": journalId,
			"error":      err.Error(),
		})
	}
}

func (s *memoryService) ExtractMemory(ctx context.Context, journalId uuid.UUID) (string, error) {
	return s.extract(ctx, journalId, true)
}

// extract is the shared path for both the worker and the sync variant.
// A journal that already has a memory point is left untouched.
func (s *memoryService) extract(ctx context.Context, journalId uuid.UUID, includeImages bool) (string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	journal, err := uow.JournalRepository().FindOne(ctx, specification.ByID{ID: journalId})
	if err != nil {
		return "", err
	}
	if journal == nil {
		return "", fmt.Errorf("journal %s not found", journalId)
	}
	if journal.HasMemoryPoint() {
		s.logger.Info("MemoryService", "Memory point already present, skipping", map[string]interface{}{
			"journal_id": journalId,
		})
		return *journal.MemoryPoint, nil
	}

	memoryPoint, err := s.generateMemoryPoint(ctx, journal, includeImages)
	if err != nil {
		return "", err
	}

	if err := uow.Begin(ctx); err != nil {
		return "", err
	}
	if err := uow.JournalRepository().UpdateMemoryPoint(ctx, journal.Id, memoryPoint); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			s.logger.Error("MemoryService", "Rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
		return "", err
	}
	if err := uow.Commit(); err != nil {
		return "", err
	}

	s.logger.Info("MemoryService", "Memory point stored", map[string]interface{}{
		"journal_id":   journalId,
		"memory_point": memoryPoint,
	})
	s.publishEvent(ctx, journal, memoryPoint)
	return memoryPoint, nil
}

func (s *memoryService) generateMemoryPoint(ctx context.Context, journal *entity.Journal, includeImages bool) (string, error) {
	prompt := buildMemoryPrompt(journal, includeImages)

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return "", fmt.Errorf("memory extraction call failed: %w", err)
	}

	memoryPoint := cleanMemoryPoint(response)
	if memoryPoint == "" {
		return "", errors.New("model returned no usable memory point")
	}

	// Prefix the journal date so accumulated memories read as a timeline.
	return journal.CreatedAt.Format("2006-01-02") + ": " + memoryPoint, nil
}

func buildMemoryPrompt(journal *entity.Journal, includeImages bool) string {
	var b strings.Builder

	b.WriteString("Below is one diary entry. Extract the single most significant fact or event as ONE short, objective sentence.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- third person is fine, no \"I think\" framing\n")
	b.WriteString("- no interpretation, no advice, no emotion labels unless stated\n")
	b.WriteString("- under 12 words, no quotation marks\n\n")

	if journal.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", journal.Title)
	}
	fmt.Fprintf(&b, "Entry:\n%s\n", journal.Content)

	if includeImages && len(journal.ImageSummaries) > 0 {
		b.WriteString("\nAttached image descriptions:\n")
		for _, summary := range journal.ImageSummaries {
			fmt.Fprintf(&b, "- %s\n", summary)
		}
	}

	b.WriteString("\nRespond with the sentence only.")
	return b.String()
}

// cleanMemoryPoint takes the first non-empty line, strips wrapping quotes
// and clamps the length.
func cleanMemoryPoint(response string) string {
	var line string
	for _, candidate := range strings.Split(response, "\n") {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			line = candidate
			break
		}
	}
	line = strings.Trim(line, `"'`)
	line = strings.TrimSpace(line)

	runes := []rune(line)
	if len(runes) > memoryPointMaxRunes {
		line = strings.TrimSpace(string(runes[:memoryPointMaxRunes]))
	}
	return line
}

func (s *memoryService) publishEvent(ctx context.Context, journal *entity.Journal, memoryPoint string) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: "JOURNAL_MEMORY_GENERATED",
		Data: map[string]interface{}{
			"journal_id":   journal.Id,
			"user_id":      journal.UserId,
			"memory_point": memoryPoint,
		},
		OccurredAt: time.Now(),
	}
	// Events are auxiliary; a failed publish never fails the task.
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("MemoryService", "Failed to publish memory event", map[string]interface{}{
			"journal_id": journal.Id,
			"error":      err.Error(),
		})
	}
}

func (s *memoryService) release(journalId uuid.UUID) {
	s.mu.Lock()
	delete(s.inFlight, journalId)
	s.mu.Unlock()
}

func (s *memoryService) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Shutdown waits for queued work to drain (bounded by ctx), then closes the
// pubsub so the worker goroutine exits.
func (s *memoryService) Shutdown(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for s.QueueDepth() > 0 {
		select {
		case <-ctx.Done():
			s.closeWorker()
			return fmt.Errorf("shutdown with %d tasks still pending: %w", s.QueueDepth(), ctx.Err())
		case <-ticker.C:
		}
	}
	s.closeWorker()
	return nil
}

func (s *memoryService) closeWorker() {
	if s.stop != nil {
		s.stop()
	}
	if err := s.pubSub.Close(); err != nil {
		s.logger.Warn("MemoryService", "PubSub close failed", map[string]interface{}{"error": err.Error()})
	}
}
