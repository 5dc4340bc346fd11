package main

import (
	"context"
	"flag"
	"os"

	"emoflow-be/internal/config"
	"emoflow-be/internal/pkg/logger"
	"emoflow-be/internal/repository/specification"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/internal/service"
	"emoflow-be/pkg/database"
	"emoflow-be/pkg/llm/factory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"
)

// Backfill tool for journals whose async memory extraction never completed
// (worker restarts, model outages). Runs the same extraction synchronously.
func main() {
	limit := flag.Int("limit", 100, "maximum journals to process in one run")
	dryRun := flag.Bool("dry-run", false, "list candidates without extracting")
	flag.Parse()

	color.Cyan("🚀 Memory Point Backfill\n")

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	uowFactory := unitofwork.NewRepositoryFactory(db)

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GoogleGeminiKey,
	)
	if err != nil {
		color.Red("Failed to initialize LLM provider: %v", err)
		os.Exit(1)
	}

	sysLogger := logger.NewZapLogger("backfill.log.csv", false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	memoryService := service.NewMemoryService(
		pubSub,
		cfg.Topics.ExtractMemory,
		uowFactory,
		llmProvider,
		nil,
		sysLogger,
	)

	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)

	journals, err := uow.JournalRepository().FindAll(ctx,
		specification.WithoutMemoryPoint{},
		specification.OrderBy{Field: "created_at", Desc: false},
		specification.Pagination{Limit: *limit, Offset: 0},
	)
	if err != nil {
		color.Red("Failed to list journals: %v", err)
		os.Exit(1)
	}
	color.Yellow("Found %d journals without a memory point", len(journals))

	if *dryRun {
		for _, journal := range journals {
			color.White("- %s  %s  %q", journal.Id, journal.CreatedAt.Format("2006-01-02"), journal.Title)
		}
		return
	}

	done, failed := 0, 0
	for _, journal := range journals {
		memoryPoint, err := memoryService.ExtractMemory(ctx, journal.Id)
		if err != nil {
			color.Red("[FAIL] %s: %v", journal.Id, err)
			failed++
			continue
		}
		color.Green("[OK] %s: %s", journal.Id, memoryPoint)
		done++
	}

	color.Cyan("\n✅ Backfill finished: %d extracted, %d failed", done, failed)
}
