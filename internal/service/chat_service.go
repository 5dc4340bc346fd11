package service

import (
	"context"

	"emoflow-be/internal/dto"
	"emoflow-be/internal/pkg/logger"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/ai/pipeline"
	"emoflow-be/pkg/rag/search"
	"emoflow-be/pkg/rag/session"

	"github.com/google/uuid"
)

type IChatService interface {
	SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	CloseSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	sessionManager *session.Manager
	chatPipeline   *pipeline.ChatPipeline
	searchCache    *search.Cache
	logger         logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	sessionManager *session.Manager,
	chatPipeline *pipeline.ChatPipeline,
	searchCache *search.Cache,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		sessionManager: sessionManager,
		chatPipeline:   chatPipeline,
		searchCache:    searchCache,
		logger:         log,
	}
}

// SendChat runs one conversation turn: load the session state, run the
// analyze/retrieve/generate pipeline, fold the turn back into the state and
// persist it. The reply is already final when persistence runs; a failed
// save surfaces as an error even though the in-memory state is current.
func (c *chatService) SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	tracker, err := c.sessionManager.GetOrCreate(ctx, uow, userId, req.SessionId)
	if err != nil {
		return nil, err
	}

	stateSummary := tracker.Summary(3)
	result := c.chatPipeline.Execute(ctx, uow, req.SessionId.String(), req.RoundIndex, stateSummary, req.Question)

	if result.Debug.Analysis != nil {
		tracker.UpdateEmotion(result.Debug.Analysis.Emotion)
	}
	tracker.ExtractFeatures(req.Question)
	tracker.AppendTurn("user", req.Question)
	tracker.AppendTurn("assistant", result.Answer)

	if err := c.sessionManager.Save(ctx, uow, userId, req.SessionId, tracker); err != nil {
		c.logger.Error("ChatService", "Failed to persist session state", map[string]interface{}{
			"user_id":    userId,
			"session_id": req.SessionId,
			"error":      err.Error(),
		})
		return nil, err
	}

	c.logger.Info("ChatService", "Turn completed", map[string]interface{}{
		"session_id": req.SessionId,
		"round":      req.RoundIndex,
		"path":       result.Debug.Path,
		"state":      tracker.Digest(),
	})

	return &dto.SendChatResponse{
		Answer: result.Answer,
		Debug:  result.Debug,
	}, nil
}

// CloseSession soft-closes the durable state record and drops both the live
// tracker and the session's search cache.
func (c *chatService) CloseSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if err := c.sessionManager.Clear(ctx, uow, userId, sessionId); err != nil {
		return err
	}
	c.searchCache.Clear(ctx, uow, sessionId.String())

	c.logger.Info("ChatService", "Session closed", map[string]interface{}{
		"user_id":    userId,
		"session_id": sessionId,
	})
	return nil
}
