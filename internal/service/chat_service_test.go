package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emoflow-be/internal/dto"
	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/contract"
	"emoflow-be/internal/repository/memory"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/ai/pipeline"
	"emoflow-be/pkg/embedding"
	"emoflow-be/pkg/rag/analyze"
	"emoflow-be/pkg/rag/search"
	"emoflow-be/pkg/rag/session"
	"emoflow-be/pkg/tracker"
)

// ---- fakes ----------------------------------------------------------------

type memSessionRepo struct {
	mu      sync.Mutex
	records map[string]*entity.SessionState
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{records: make(map[string]*entity.SessionState)}
}

func sessionKey(userId, sessionId uuid.UUID) string {
	return userId.String() + ":" + sessionId.String()
}

func (r *memSessionRepo) Create(ctx context.Context, state *entity.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[sessionKey(state.UserId, state.SessionId)] = state
	return nil
}

func (r *memSessionRepo) Update(ctx context.Context, state *entity.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[sessionKey(state.UserId, state.SessionId)] = state
	return nil
}

func (r *memSessionRepo) Deactivate(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[sessionKey(userId, sessionId)]; ok {
		record.Active = false
	}
	return nil
}

func (r *memSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var userId, sessionId uuid.UUID
	activeOnly := false
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByUserAndSession:
			userId, sessionId = sp.UserID, sp.SessionID
		case specification.ActiveOnly:
			activeOnly = true
		}
	}
	record, ok := r.records[sessionKey(userId, sessionId)]
	if !ok || (activeOnly && !record.Active) {
		return nil, nil
	}
	return record, nil
}

func (r *memSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionState, error) {
	return nil, nil
}

func (r *memSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.records)), nil
}

type memCacheRepo struct {
	mu      sync.Mutex
	records map[string]*entity.SearchCache
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{records: make(map[string]*entity.SearchCache)}
}

func (r *memCacheRepo) Create(ctx context.Context, c *entity.SearchCache) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[c.SessionKey] = c
	return nil
}

func (r *memCacheRepo) Update(ctx context.Context, c *entity.SearchCache) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[c.SessionKey] = c
	return nil
}

func (r *memCacheRepo) Upsert(ctx context.Context, c *entity.SearchCache) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[c.SessionKey] = c
	return nil
}

func (r *memCacheRepo) DeleteBySessionKey(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *memCacheRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SearchCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byKey, ok := spec.(specification.BySessionKey); ok {
			return r.records[byKey.SessionKey], nil
		}
	}
	return nil, nil
}

type stubKnowledgeRepo struct {
	scored []*contract.ScoredKnowledgeEmbedding
}

func (s *stubKnowledgeRepo) Create(ctx context.Context, e *entity.KnowledgeEmbedding) error {
	return nil
}
func (s *stubKnowledgeRepo) CreateBulk(ctx context.Context, e []*entity.KnowledgeEmbedding) error {
	return nil
}
func (s *stubKnowledgeRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubKnowledgeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeEmbedding, error) {
	return nil, nil
}
func (s *stubKnowledgeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeEmbedding, error) {
	return nil, nil
}
func (s *stubKnowledgeRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}
func (s *stubKnowledgeRepo) SearchSimilarWithScore(ctx context.Context, emb []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeEmbedding, error) {
	return s.scored, nil
}

type chatUow struct {
	sessionRepo   *memSessionRepo
	cacheRepo     *memCacheRepo
	knowledgeRepo *stubKnowledgeRepo
}

var _ unitofwork.UnitOfWork = (*chatUow)(nil)

func (u *chatUow) Begin(ctx context.Context) error                         { return nil }
func (u *chatUow) Commit() error                                           { return nil }
func (u *chatUow) Rollback() error                                         { return nil }
func (u *chatUow) SessionStateRepository() contract.SessionStateRepository { return u.sessionRepo }
func (u *chatUow) JournalRepository() contract.JournalRepository           { return nil }
func (u *chatUow) SearchCacheRepository() contract.SearchCacheRepository   { return u.cacheRepo }
func (u *chatUow) KnowledgeEmbeddingRepository() contract.KnowledgeEmbeddingRepository {
	return u.knowledgeRepo
}

type chatUowFactory struct {
	uow *chatUow
}

func (f *chatUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type nullEmbedder struct{}

func (nullEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.5}},
	}, nil
}

// ---- helpers --------------------------------------------------------------

func newChatFixture(replies []string) (IChatService, *chatUow) {
	provider := &fnLLM{fn: func(string) (string, error) { return "", nil }}
	queue := append([]string(nil), replies...)
	var mu sync.Mutex
	provider.fn = func(string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(queue) == 0 {
			return "", errors.New("no reply scripted")
		}
		reply := queue[0]
		queue = queue[1:]
		return reply, nil
	}

	plainLogger := log.New(io.Discard, "", 0)
	uow := &chatUow{
		sessionRepo:   newMemSessionRepo(),
		cacheRepo:     newMemCacheRepo(),
		knowledgeRepo: &stubKnowledgeRepo{},
	}
	factory := &chatUowFactory{uow: uow}

	stateRepo := memory.NewStateRepository()
	sessionManager := session.NewManager(stateRepo, plainLogger)
	searchCache := search.NewCache(plainLogger)
	distiller := search.NewDistiller(provider, plainLogger)
	retriever := search.NewRetriever(nullEmbedder{}, distiller, plainLogger, search.DefaultConfig())
	analyzer := analyze.NewAnalyzer(provider, plainLogger)
	bypass := pipeline.NewBypassPipeline(plainLogger)
	chatPipeline := pipeline.NewChatPipeline(analyzer, retriever, searchCache, provider, bypass, plainLogger, true)

	svc := NewChatService(factory, sessionManager, chatPipeline, searchCache, nopLogger{})
	return svc, uow
}

// ---- tests ----------------------------------------------------------------

func TestSendChatFirstRoundSkipsRetrievalAndPersists(t *testing.T) {
	svc, uow := newChatFixture([]string{
		`{"emotion":"anxious","stage":"OPENING","intent":"venting","ask_mode":"GENTLE","pace":"SLOW","need_retrieval":false,"queries":[]}`,
		"That sounds exhausting. I'm right here with you.",
	})
	ctx := context.Background()
	userId, sessionId := uuid.New(), uuid.New()

	resp, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{
		SessionId:  sessionId,
		RoundIndex: 1,
		Question:   "I haven't slept properly in a week",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, "pipeline", resp.Debug.Path)
	assert.Equal(t, analyze.StageOpening, resp.Debug.Analysis.Stage)
	assert.Equal(t, []string{}, resp.Debug.RagBullets)

	record, err := uow.sessionRepo.FindOne(ctx,
		specification.ByUserAndSession{UserID: userId, SessionID: sessionId},
		specification.ActiveOnly{},
	)
	require.NoError(t, err)
	require.NotNil(t, record, "the turn must leave a durable active record")

	var state tracker.State
	require.NoError(t, json.Unmarshal(record.Payload, &state))
	assert.Equal(t, "anxious", state.CurrentEmotion)
	assert.Equal(t, []string{"anxious"}, state.EmotionHistory)
	require.Len(t, state.History, 2)
	assert.Equal(t, "user", state.History[0].Role)
	assert.Equal(t, "assistant", state.History[1].Role)
}

func TestSendChatAccumulatesStateAcrossRounds(t *testing.T) {
	svc, uow := newChatFixture([]string{
		`{"emotion":"sad","stage":"OPENING","need_retrieval":false,"queries":[]}`,
		"I'm listening.",
		`{"emotion":"hopeful","stage":"ADVICE","intent":"wants_advice","need_retrieval":false,"queries":[]}`,
		"Maybe start small tomorrow.",
	})
	ctx := context.Background()
	userId, sessionId := uuid.New(), uuid.New()

	_, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{SessionId: sessionId, RoundIndex: 1, Question: "I feel that honesty matters. I'm worried about losing my job."})
	require.NoError(t, err)
	_, err = svc.SendChat(ctx, userId, &dto.SendChatRequest{SessionId: sessionId, RoundIndex: 3, Question: "what should I do?"})
	require.NoError(t, err)

	record, _ := uow.sessionRepo.FindOne(ctx,
		specification.ByUserAndSession{UserID: userId, SessionID: sessionId},
		specification.ActiveOnly{},
	)
	require.NotNil(t, record)
	var state tracker.State
	require.NoError(t, json.Unmarshal(record.Payload, &state))

	assert.Equal(t, []string{"sad", "hopeful"}, state.EmotionHistory)
	assert.Equal(t, "hopeful", state.CurrentEmotion)
	assert.Len(t, state.History, 4)
	assert.NotEmpty(t, state.UserValues, "regex extraction caught the stated value")
	assert.NotEmpty(t, state.UserConcerns, "regex extraction caught the stated concern")
}

func TestCloseSessionSoftClosesAndClearsCaches(t *testing.T) {
	svc, uow := newChatFixture([]string{
		`{"emotion":"calm","stage":"OPENING","need_retrieval":false,"queries":[]}`,
		"Good to hear from you.",
	})
	ctx := context.Background()
	userId, sessionId := uuid.New(), uuid.New()

	_, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{SessionId: sessionId, RoundIndex: 1, Question: "hi"})
	require.NoError(t, err)
	uow.cacheRepo.records[sessionId.String()] = &entity.SearchCache{SessionKey: sessionId.String()}

	require.NoError(t, svc.CloseSession(ctx, userId, sessionId))

	record := uow.sessionRepo.records[sessionKey(userId, sessionId)]
	require.NotNil(t, record, "the durable record survives as an audit trail")
	assert.False(t, record.Active)
	assert.NotContains(t, uow.cacheRepo.records, sessionId.String(), "search cache record is dropped")
}
