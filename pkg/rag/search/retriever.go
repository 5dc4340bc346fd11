package search

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"sort"

	"emoflow-be/internal/repository/contract"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/pkg/embedding"
)

// Retriever pools semantic search results across one or more queries and
// distills them into actionable bullets. Retrieval failure is never fatal to
// the calling turn: every degradation path yields an empty bullet list.
type Retriever struct {
	embeddingProvider embedding.EmbeddingProvider
	distiller         *Distiller
	logger            *log.Logger
	config            Config
}

func NewRetriever(embeddingProvider embedding.EmbeddingProvider, distiller *Distiller, logger *log.Logger, config Config) *Retriever {
	return &Retriever{
		embeddingProvider: embeddingProvider,
		distiller:         distiller,
		logger:            logger,
		config:            config,
	}
}

// Config exposes the active retrieval parameters (for the debug envelope).
func (r *Retriever) Config() Config {
	return r.config
}

// Search runs every query against the vector index, pools the hits,
// deduplicates and threshold-filters them. A failing query is skipped;
// partial results are acceptable.
func (r *Retriever) Search(ctx context.Context, uow unitofwork.UnitOfWork, queries []string) []KnowledgeItem {
	var pooled []KnowledgeItem

	for _, query := range queries {
		items, err := r.searchOne(ctx, uow, query)
		if err != nil {
			r.logger.Printf("[SEARCH] query %q failed, skipping: %v", query, err)
			continue
		}
		pooled = append(pooled, items...)
	}

	candidates := FilterAndDeduplicate(pooled, r.config.Threshold)
	if len(candidates) > r.config.MaxCandidates {
		candidates = candidates[:r.config.MaxCandidates]
	}

	r.logger.Printf("[SEARCH] %d queries -> %d pooled -> %d candidates", len(queries), len(pooled), len(candidates))
	return candidates
}

// Distill converts the top candidates into 2-3 short bullets via one LLM
// call. Empty input or a failed call yields an empty list.
func (r *Retriever) Distill(ctx context.Context, candidates []KnowledgeItem) []string {
	if len(candidates) == 0 {
		return nil
	}
	top := candidates
	if len(top) > r.config.DistillTop {
		top = top[:r.config.DistillTop]
	}
	snippets := make([]string, len(top))
	for i, c := range top {
		snippets[i] = c.Content
	}
	return r.distiller.Distill(ctx, snippets)
}

func (r *Retriever) searchOne(ctx context.Context, uow unitofwork.UnitOfWork, query string) ([]KnowledgeItem, error) {
	embeddingRes, err := r.embeddingProvider.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	// DB-side threshold stays at 0 so pooling sees every candidate;
	// the logical threshold is applied after dedup.
	scored, err := uow.KnowledgeEmbeddingRepository().SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		r.config.PerQueryTopK,
		0.0,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	items := make([]KnowledgeItem, 0, len(scored))
	for _, s := range scored {
		items = append(items, toKnowledgeItem(s))
	}
	return items, nil
}

func toKnowledgeItem(s *contract.ScoredKnowledgeEmbedding) KnowledgeItem {
	return KnowledgeItem{
		ID:       s.Embedding.Id.String(),
		Content:  s.Embedding.Document,
		Score:    s.Similarity,
		Metadata: s.Embedding.Metadata,
	}
}

// FilterAndDeduplicate keeps the highest-scoring instance per stable id,
// drops everything below the threshold and sorts by descending score.
// Running it twice over its own output yields the same set.
func FilterAndDeduplicate(items []KnowledgeItem, threshold float64) []KnowledgeItem {
	best := make(map[string]KnowledgeItem)
	order := make([]string, 0, len(items))

	for _, item := range items {
		if item.Score < threshold {
			continue
		}
		id := stableID(item)
		existing, seen := best[id]
		if !seen {
			order = append(order, id)
			best[id] = item
			continue
		}
		if item.Score > existing.Score {
			best[id] = item
		}
	}

	out := make([]KnowledgeItem, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// stableID prefers the item's own id; items without one fall back to a hash
// of a content prefix so near-identical chunks still collapse.
func stableID(item KnowledgeItem) string {
	if item.ID != "" {
		return item.ID
	}
	prefix := item.Content
	if len(prefix) > 64 {
		prefix = prefix[:64]
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(prefix)))
}
