package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/contract"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/pkg/embedding"
	"emoflow-be/pkg/llm"
	"emoflow-be/pkg/rag/analyze"
	"emoflow-be/pkg/rag/search"
)

// ---- fakes ----------------------------------------------------------------

type scriptedReply struct {
	text string
	err  error
}

// scriptedLLM returns pre-recorded replies in call order: analysis first,
// then distillation, then generation.
type scriptedLLM struct {
	replies []scriptedReply
	calls   int
}

func (s *scriptedLLM) next() (string, error) {
	if s.calls >= len(s.replies) {
		return "", errors.New("no scripted reply left")
	}
	r := s.replies[s.calls]
	s.calls++
	return r.text, r.err
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.next()
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.next()
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

type fakeKnowledgeRepo struct {
	scored      []*contract.ScoredKnowledgeEmbedding
	searchCalls int
}

func (f *fakeKnowledgeRepo) Create(ctx context.Context, e *entity.KnowledgeEmbedding) error { return nil }
func (f *fakeKnowledgeRepo) CreateBulk(ctx context.Context, e []*entity.KnowledgeEmbedding) error {
	return nil
}
func (f *fakeKnowledgeRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeKnowledgeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeEmbedding, error) {
	return nil, nil
}
func (f *fakeKnowledgeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeEmbedding, error) {
	return nil, nil
}
func (f *fakeKnowledgeRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}
func (f *fakeKnowledgeRepo) SearchSimilarWithScore(ctx context.Context, emb []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeEmbedding, error) {
	f.searchCalls++
	return f.scored, nil
}

type fakeCacheRepo struct {
	records map[string]*entity.SearchCache
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{records: make(map[string]*entity.SearchCache)}
}

func (f *fakeCacheRepo) Create(ctx context.Context, c *entity.SearchCache) error {
	f.records[c.SessionKey] = c
	return nil
}
func (f *fakeCacheRepo) Update(ctx context.Context, c *entity.SearchCache) error {
	f.records[c.SessionKey] = c
	return nil
}
func (f *fakeCacheRepo) Upsert(ctx context.Context, c *entity.SearchCache) error {
	f.records[c.SessionKey] = c
	return nil
}
func (f *fakeCacheRepo) DeleteBySessionKey(ctx context.Context, sessionKey string) error {
	delete(f.records, sessionKey)
	return nil
}
func (f *fakeCacheRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SearchCache, error) {
	for _, spec := range specs {
		if byKey, ok := spec.(specification.BySessionKey); ok {
			return f.records[byKey.SessionKey], nil
		}
	}
	return nil, nil
}

type fakeUnitOfWork struct {
	cacheRepo     *fakeCacheRepo
	knowledgeRepo *fakeKnowledgeRepo
}

func (f *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (f *fakeUnitOfWork) Commit() error                   { return nil }
func (f *fakeUnitOfWork) Rollback() error                 { return nil }
func (f *fakeUnitOfWork) SessionStateRepository() contract.SessionStateRepository { return nil }
func (f *fakeUnitOfWork) JournalRepository() contract.JournalRepository           { return nil }
func (f *fakeUnitOfWork) SearchCacheRepository() contract.SearchCacheRepository {
	return f.cacheRepo
}
func (f *fakeUnitOfWork) KnowledgeEmbeddingRepository() contract.KnowledgeEmbeddingRepository {
	return f.knowledgeRepo
}

// ---- helpers --------------------------------------------------------------

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestPipeline(provider llm.Provider, embedder embedding.EmbeddingProvider, enabled bool) *ChatPipeline {
	logger := quietLogger()
	distiller := search.NewDistiller(provider, logger)
	retriever := search.NewRetriever(embedder, distiller, logger, search.DefaultConfig())
	cache := search.NewCache(logger)
	analyzer := analyze.NewAnalyzer(provider, logger)
	bypass := NewBypassPipeline(logger)
	return NewChatPipeline(analyzer, retriever, cache, provider, bypass, logger, enabled)
}

func scoredItem(doc string, score float64) *contract.ScoredKnowledgeEmbedding {
	return &contract.ScoredKnowledgeEmbedding{
		Embedding: &entity.KnowledgeEmbedding{
			Id:       uuid.New(),
			Document: doc,
		},
		Similarity: score,
	}
}

// ---- tests ----------------------------------------------------------------

func TestExecuteOpeningTurnSkipsRetrieval(t *testing.T) {
	provider := &scriptedLLM{replies: []scriptedReply{
		// analysis: opening round, model even asks for retrieval - the stage
		// gate must still win
		{text: `{"emotion":"anxious","stage":"OPENING","intent":"venting","ask_mode":"GENTLE","pace":"NORMAL","need_retrieval":true,"queries":["grounding techniques"]}`},
		// generation
		{text: "That sounds really heavy. I'm here with you."},
	}}
	embedder := &fakeEmbedder{}
	pipe := newTestPipeline(provider, embedder, true)
	uow := &fakeUnitOfWork{cacheRepo: newFakeCacheRepo(), knowledgeRepo: &fakeKnowledgeRepo{}}

	result := pipe.Execute(context.Background(), uow, "sess-1", 1, "", "I can't sleep lately")

	assert.NotEmpty(t, result.Answer)
	assert.Equal(t, "pipeline", result.Debug.Path)
	assert.Equal(t, analyze.StageOpening, result.Debug.Analysis.Stage)
	assert.Equal(t, []string{}, result.Debug.RagBullets)
	assert.InDelta(t, 0.50, result.Debug.Threshold, 1e-9)
	assert.Zero(t, embedder.calls, "no embedding call on a skipped retrieval")
	assert.Zero(t, uow.knowledgeRepo.searchCalls)
}

func TestExecuteDisabledUsesBypass(t *testing.T) {
	provider := &scriptedLLM{} // must never be called
	pipe := newTestPipeline(provider, &fakeEmbedder{}, false)
	uow := &fakeUnitOfWork{cacheRepo: newFakeCacheRepo(), knowledgeRepo: &fakeKnowledgeRepo{}}

	result := pipe.Execute(context.Background(), uow, "sess-1", 3, "", "hello")

	assert.Equal(t, bypassPlaceholder, result.Answer)
	assert.Equal(t, "bypass", result.Debug.Path)
	assert.Equal(t, []string{}, result.Debug.RagBullets)
	assert.Zero(t, provider.calls)
}

func TestExecuteAdviceTurnRetrievesAndCaches(t *testing.T) {
	analysisJSON := `{"emotion":"stressed","stage":"ADVICE","intent":"wants_advice","ask_mode":"NONE","pace":"NORMAL","need_retrieval":true,"queries":["workplace stress coping"]}`
	provider := &scriptedLLM{replies: []scriptedReply{
		{text: analysisJSON},
		{text: "- Try a short walk before meetings\n- Name the worry out loud"}, // distillation
		{text: "One thing that might help is a short walk before meetings."},    // generation
		// second turn: analysis + generation only, retrieval comes from cache
		{text: analysisJSON},
		{text: "As we talked about, a short walk can reset things."},
	}}
	embedder := &fakeEmbedder{}
	knowledgeRepo := &fakeKnowledgeRepo{scored: []*contract.ScoredKnowledgeEmbedding{
		scoredItem("Brief physical activity lowers acute stress.", 0.82),
		scoredItem("Verbalizing a worry reduces its intensity.", 0.71),
	}}
	pipe := newTestPipeline(provider, embedder, true)
	uow := &fakeUnitOfWork{cacheRepo: newFakeCacheRepo(), knowledgeRepo: knowledgeRepo}

	first := pipe.Execute(context.Background(), uow, "sess-2", 4, "EMOTION: stressed", "work is crushing me, what do I do?")

	assert.Equal(t, "One thing that might help is a short walk before meetings.", first.Answer)
	assert.Equal(t, []string{"Try a short walk before meetings", "Name the worry out loud"}, first.Debug.RagBullets)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, knowledgeRepo.searchCalls)

	second := pipe.Execute(context.Background(), uow, "sess-2", 5, "EMOTION: stressed", "work is crushing me, what do I do?")

	assert.Equal(t, first.Debug.RagBullets, second.Debug.RagBullets)
	assert.Equal(t, 1, embedder.calls, "repeat turn must be served from the cache")
	assert.Equal(t, 1, knowledgeRepo.searchCalls)
}

func TestExecuteGenerationFailureReturnsFallback(t *testing.T) {
	provider := &scriptedLLM{replies: []scriptedReply{
		{text: `{"stage":"OPENING","need_retrieval":false,"queries":[]}`},
		{err: errors.New("model unavailable")},
	}}
	pipe := newTestPipeline(provider, &fakeEmbedder{}, true)
	uow := &fakeUnitOfWork{cacheRepo: newFakeCacheRepo(), knowledgeRepo: &fakeKnowledgeRepo{}}

	result := pipe.Execute(context.Background(), uow, "sess-3", 1, "", "hi")

	assert.Equal(t, fallbackAnswer, result.Answer)
	assert.Equal(t, "pipeline", result.Debug.Path)
}

func TestExecuteAnalysisFailureDegradesToDefaults(t *testing.T) {
	provider := &scriptedLLM{replies: []scriptedReply{
		{err: errors.New("classifier down")},
		{text: "I'm listening - tell me more."},
	}}
	embedder := &fakeEmbedder{}
	pipe := newTestPipeline(provider, embedder, true)
	uow := &fakeUnitOfWork{cacheRepo: newFakeCacheRepo(), knowledgeRepo: &fakeKnowledgeRepo{}}

	result := pipe.Execute(context.Background(), uow, "sess-4", 4, "", "everything is too much")

	assert.Equal(t, "I'm listening - tell me more.", result.Answer)
	assert.Equal(t, analyze.StageAdvice, result.Debug.Analysis.Stage)
	assert.False(t, result.Debug.Analysis.NeedRetrieval)
	assert.Equal(t, []string{}, result.Debug.RagBullets)
	assert.Zero(t, embedder.calls)
}
