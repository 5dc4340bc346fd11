package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emoflow-be/internal/entity"
	"emoflow-be/internal/pkg/logger"
	"emoflow-be/internal/repository/contract"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/llm"
)

// ---- fakes ----------------------------------------------------------------

type nopLogger struct{}

var _ logger.ILogger = nopLogger{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fnLLM struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	fn      func(prompt string) (string, error)
}

func (f *fnLLM) record(prompt string) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
}

func (f *fnLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fnLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fnLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	f.record(last)
	return f.fn(last)
}

func (f *fnLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.record(prompt)
	return f.fn(prompt)
}

type memJournalRepo struct {
	mu       sync.Mutex
	journals map[uuid.UUID]*entity.Journal
}

func newMemJournalRepo(journals ...*entity.Journal) *memJournalRepo {
	repo := &memJournalRepo{journals: make(map[uuid.UUID]*entity.Journal)}
	for _, j := range journals {
		repo.journals[j.Id] = j
	}
	return repo
}

func (r *memJournalRepo) Create(ctx context.Context, journal *entity.Journal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.journals[journal.Id] = journal
	return nil
}

func (r *memJournalRepo) Update(ctx context.Context, journal *entity.Journal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.journals[journal.Id] = journal
	return nil
}

func (r *memJournalRepo) UpdateMemoryPoint(ctx context.Context, id uuid.UUID, memoryPoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if journal, ok := r.journals[id]; ok {
		journal.MemoryPoint = &memoryPoint
	}
	return nil
}

func (r *memJournalRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *memJournalRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Journal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			if journal, found := r.journals[byId.ID]; found {
				copied := *journal
				return &copied, nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (r *memJournalRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Journal, error) {
	return nil, nil
}

func (r *memJournalRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

func (r *memJournalRepo) memoryPoint(id uuid.UUID) *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if journal, ok := r.journals[id]; ok {
		return journal.MemoryPoint
	}
	return nil
}

type journalOnlyUow struct {
	repo *memJournalRepo
}

var _ unitofwork.UnitOfWork = (*journalOnlyUow)(nil)

func (u *journalOnlyUow) Begin(ctx context.Context) error                         { return nil }
func (u *journalOnlyUow) Commit() error                                           { return nil }
func (u *journalOnlyUow) Rollback() error                                         { return nil }
func (u *journalOnlyUow) SessionStateRepository() contract.SessionStateRepository { return nil }
func (u *journalOnlyUow) JournalRepository() contract.JournalRepository           { return u.repo }
func (u *journalOnlyUow) SearchCacheRepository() contract.SearchCacheRepository   { return nil }
func (u *journalOnlyUow) KnowledgeEmbeddingRepository() contract.KnowledgeEmbeddingRepository {
	return nil
}

type journalOnlyFactory struct {
	repo *memJournalRepo
}

func (f *journalOnlyFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &journalOnlyUow{repo: f.repo}
}

// ---- helpers --------------------------------------------------------------

func newTestMemoryService(repo *memJournalRepo, provider llm.Provider) IMemoryService {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	return NewMemoryService(pubSub, "journal.extract_memory", &journalOnlyFactory{repo: repo}, provider, nil, nopLogger{})
}

func testJournal(content string) *entity.Journal {
	return &entity.Journal{
		Id:        uuid.New(),
		UserId:    uuid.New(),
		Title:     "today",
		Content:   content,
		CreatedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

// ---- tests ----------------------------------------------------------------

func TestEnqueueExtractsAndStoresMemoryPoint(t *testing.T) {
	journal := testJournal("I finally handed in my resignation today after months of doubt.")
	repo := newMemJournalRepo(journal)
	provider := &fnLLM{fn: func(string) (string, error) {
		return `"Handed in resignation after months of doubt."`, nil
	}}
	svc := newTestMemoryService(repo, provider)

	require.True(t, svc.Enqueue(journal.Id))

	require.Eventually(t, func() bool {
		return repo.memoryPoint(journal.Id) != nil
	}, 2*time.Second, 10*time.Millisecond)

	stored := *repo.memoryPoint(journal.Id)
	assert.True(t, strings.HasPrefix(stored, "2025-03-14: "), "memory point is date-prefixed: %q", stored)
	assert.NotContains(t, stored, `"`, "wrapping quotes are stripped")
	assert.Contains(t, stored, "Handed in resignation")
}

func TestEnqueueRejectsDuplicateInFlight(t *testing.T) {
	journal := testJournal("something happened")
	repo := newMemJournalRepo(journal)
	release := make(chan struct{})
	provider := &fnLLM{fn: func(string) (string, error) {
		<-release
		return "Something happened.", nil
	}}
	svc := newTestMemoryService(repo, provider)

	require.True(t, svc.Enqueue(journal.Id))
	assert.False(t, svc.Enqueue(journal.Id), "same journal must not queue twice")
	assert.Equal(t, 1, svc.QueueDepth())

	close(release)
	require.Eventually(t, func() bool { return svc.QueueDepth() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, provider.callCount(), "duplicate enqueue caused no extra extraction")
}

func TestWorkerSkipsJournalWithExistingMemoryPoint(t *testing.T) {
	journal := testJournal("old news")
	existing := "2025-01-01: Already extracted."
	journal.MemoryPoint = &existing
	repo := newMemJournalRepo(journal)
	provider := &fnLLM{fn: func(string) (string, error) { return "should never run", nil }}
	svc := newTestMemoryService(repo, provider)

	require.True(t, svc.Enqueue(journal.Id))
	require.Eventually(t, func() bool { return svc.QueueDepth() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.Zero(t, provider.callCount(), "existing memory point short-circuits before the model")
	assert.Equal(t, existing, *repo.memoryPoint(journal.Id))
}

func TestExtractMemorySyncIncludesImageSummaries(t *testing.T) {
	journal := testJournal("We spent the day at the coast.")
	journal.ImageSummaries = []string{"a sunset over the sea", "two people on a pier"}
	repo := newMemJournalRepo(journal)
	provider := &fnLLM{fn: func(string) (string, error) {
		return "Spent the day at the coast.", nil
	}}
	svc := newTestMemoryService(repo, provider)

	memoryPoint, err := svc.ExtractMemory(context.Background(), journal.Id)

	require.NoError(t, err)
	assert.Equal(t, "2025-03-14: Spent the day at the coast.", memoryPoint)
	assert.Contains(t, provider.lastPrompt(), "a sunset over the sea")
	assert.Contains(t, provider.lastPrompt(), "two people on a pier")
	require.NotNil(t, repo.memoryPoint(journal.Id))
	assert.Equal(t, memoryPoint, *repo.memoryPoint(journal.Id))
}

func TestExtractMemoryUnknownJournalFails(t *testing.T) {
	repo := newMemJournalRepo()
	provider := &fnLLM{fn: func(string) (string, error) { return "x", nil }}
	svc := newTestMemoryService(repo, provider)

	_, err := svc.ExtractMemory(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestCleanMemoryPoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "She moved to a new city.", "She moved to a new city."},
		{"wrapping quotes", `"She moved to a new city."`, "She moved to a new city."},
		{"leading blank lines", "\n\n  She moved.  \nextra commentary", "She moved."},
		{"empty", "   \n  ", ""},
		{
			"clamped",
			strings.Repeat("a", 80),
			strings.Repeat("a", memoryPointMaxRunes),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanMemoryPoint(tc.input))
		})
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	journal := testJournal("draining test")
	repo := newMemJournalRepo(journal)
	release := make(chan struct{})
	provider := &fnLLM{fn: func(string) (string, error) {
		<-release
		return "Drained.", nil
	}}
	svc := newTestMemoryService(repo, provider)

	require.True(t, svc.Enqueue(journal.Id))

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
	assert.Zero(t, svc.QueueDepth())
}
