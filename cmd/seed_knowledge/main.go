package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"emoflow-be/internal/config"
	"emoflow-be/internal/entity"
	"emoflow-be/internal/repository/implementation"
	"emoflow-be/pkg/database"
	"emoflow-be/pkg/embedding"
	"emoflow-be/pkg/utils"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// knowledgeDoc is one entry of the seed file: a psychoeducation snippet plus
// free-form metadata (source, topic, ...).
type knowledgeDoc struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

func main() {
	seedFile := flag.String("file", "knowledge.json", "path to the knowledge seed file")
	batchSize := flag.Int("batch", 50, "insert batch size")
	flag.Parse()

	color.Cyan("🚀 Knowledge Base Seeder\n")

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	repo := implementation.NewKnowledgeEmbeddingRepository(db)

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GoogleGeminiKey)
	}

	raw, err := os.ReadFile(*seedFile)
	if err != nil {
		color.Red("Failed to read seed file %s: %v", *seedFile, err)
		os.Exit(1)
	}
	var docs []knowledgeDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		color.Red("Seed file is not valid JSON: %v", err)
		os.Exit(1)
	}
	color.Yellow("Loaded %d documents from %s", len(docs), *seedFile)

	ctx := context.Background()
	batch := make([]*entity.KnowledgeEmbedding, 0, *batchSize)
	seeded, failed := 0, 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := repo.CreateBulk(ctx, batch); err != nil {
			color.Red("Batch insert failed: %v", err)
			failed += len(batch)
		} else {
			seeded += len(batch)
		}
		batch = batch[:0]
	}

	for i, doc := range docs {
		if doc.Content == "" {
			continue
		}
		// Long documents are chunked with overlap so each embedding stays
		// within a useful semantic window.
		for _, chunk := range utils.SplitText(doc.Content, 1200, 150) {
			res, err := embeddingProvider.Generate(chunk, "RETRIEVAL_DOCUMENT")
			if err != nil {
				color.Red("[%d] embedding failed: %v", i, err)
				failed++
				continue
			}
			batch = append(batch, &entity.KnowledgeEmbedding{
				Id:             uuid.New(),
				Document:       chunk,
				EmbeddingValue: res.Embedding.Values,
				Metadata:       doc.Metadata,
			})
			if len(batch) >= *batchSize {
				flush()
			}
		}
	}
	flush()

	color.Green("\n✅ Done: %d seeded, %d failed", seeded, failed)
}
