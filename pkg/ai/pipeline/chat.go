package pipeline

import (
	"context"
	"log"
	"strings"

	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/llm"
	"emoflow-be/pkg/rag/analyze"
	"emoflow-be/pkg/rag/search"
)

// DebugEnvelope documents which path a turn took so callers can observe the
// pipeline without re-deriving state.
type DebugEnvelope struct {
	Path       string                `json:"path"` // "pipeline" | "bypass"
	Analysis   *analyze.TurnAnalysis `json:"analysis,omitempty"`
	RagBullets []string              `json:"rag_bullets"`
	Threshold  float64               `json:"threshold"`
}

// ChatResult is the controller output for one turn.
type ChatResult struct {
	Answer string
	Debug  DebugEnvelope
}

// ChatPipeline conducts one turn: ANALYZE -> (RETRIEVE)? -> GENERATE.
// The three steps are strictly sequential; each depends on the previous
// step's output. A disabled pipeline short-circuits to the bypass.
type ChatPipeline struct {
	analyzer    *analyze.Analyzer
	retriever   *search.Retriever
	cache       *search.Cache
	llmProvider llm.Provider
	bypass      *BypassPipeline
	logger      *log.Logger

	enabled bool
	// retrieval runs only in these stages; opening/closing turns skip it
	retrievalStages map[string]bool
}

func NewChatPipeline(
	analyzer *analyze.Analyzer,
	retriever *search.Retriever,
	cache *search.Cache,
	llmProvider llm.Provider,
	bypass *BypassPipeline,
	logger *log.Logger,
	enabled bool,
) *ChatPipeline {
	return &ChatPipeline{
		analyzer:    analyzer,
		retriever:   retriever,
		cache:       cache,
		llmProvider: llmProvider,
		bypass:      bypass,
		logger:      logger,
		enabled:     enabled,
		retrievalStages: map[string]bool{
			analyze.StageAdvice: true,
		},
	}
}

// fallbackAnswer is returned when even the final generation call fails:
// the user never sees a raw error.
const fallbackAnswer = "I'm here with you. I had trouble putting my thoughts together just now - could you tell me a little more about how you're feeling?"

// Execute runs one turn end to end. Analysis and retrieval failures degrade
// (default analysis, empty bullets); only the debug envelope records what
// actually happened.
func (p *ChatPipeline) Execute(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	sessionKey string,
	roundIndex int,
	stateSummary string,
	question string,
) *ChatResult {

	if !p.enabled {
		return p.bypass.Execute(ctx, question)
	}

	// 1. ANALYZE
	analysis := p.safeAnalyze(ctx, roundIndex, stateSummary, question)

	// 2. RETRIEVE (conditional)
	var bullets []string
	if analysis.NeedRetrieval && p.retrievalStages[analysis.Stage] && len(analysis.Queries) > 0 {
		bullets = p.retrieveBullets(ctx, uow, sessionKey, analysis.Queries)
	} else {
		p.logger.Printf("[PIPELINE] retrieval skipped: need=%v stage=%s", analysis.NeedRetrieval, analysis.Stage)
	}

	// 3. GENERATE
	prompt := NewPromptBuilder(stateSummary, analysis, bullets, question).Build()
	answer, err := p.llmProvider.Generate(ctx, prompt)
	if err != nil {
		p.logger.Printf("[PIPELINE] generation failed, returning fallback: %v", err)
		answer = fallbackAnswer
	}

	if bullets == nil {
		bullets = []string{}
	}
	return &ChatResult{
		Answer: answer,
		Debug: DebugEnvelope{
			Path:       "pipeline",
			Analysis:   analysis,
			RagBullets: bullets,
			Threshold:  p.retriever.Config().Threshold,
		},
	}
}

// safeAnalyze shields the turn from analyzer panics as well as errors;
// whatever happens, a fully populated record comes back.
func (p *ChatPipeline) safeAnalyze(ctx context.Context, roundIndex int, stateSummary string, question string) (analysis *analyze.TurnAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("[PIPELINE] analyzer panicked, using defaults: %v", r)
			analysis = analyze.DefaultFor(roundIndex)
		}
	}()
	return p.analyzer.Analyze(ctx, roundIndex, stateSummary, question)
}

// retrieveBullets is cache-first over the whole multi-query retrieval:
// the canonical key is the joined query list, so a repeated turn inside a
// session costs no external calls.
func (p *ChatPipeline) retrieveBullets(ctx context.Context, uow unitofwork.UnitOfWork, sessionKey string, queries []string) []string {
	cacheKey := strings.Join(queries, " || ")

	result, err := p.cache.SearchWithCache(ctx, uow, sessionKey, cacheKey,
		func(ctx context.Context, _ string) (string, error) {
			candidates := p.retriever.Search(ctx, uow, queries)
			bullets := p.retriever.Distill(ctx, candidates)
			return strings.Join(bullets, "\n"), nil
		})
	if err != nil {
		p.logger.Printf("[PIPELINE] retrieval failed, continuing without knowledge: %v", err)
		return nil
	}
	if result == "" {
		return nil
	}
	return strings.Split(result, "\n")
}
