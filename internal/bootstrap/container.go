package bootstrap

import (
	"log"
	"os"
	"path/filepath"

	"emoflow-be/internal/config"
	"emoflow-be/internal/controller"
	"emoflow-be/internal/pkg/logger"
	"emoflow-be/internal/repository/memory"
	"emoflow-be/internal/repository/unitofwork"
	"emoflow-be/internal/service"
	"emoflow-be/pkg/ai/pipeline"
	"emoflow-be/pkg/embedding"
	"emoflow-be/pkg/llm/factory"
	"emoflow-be/pkg/rag/analyze"
	"emoflow-be/pkg/rag/search"
	"emoflow-be/pkg/rag/session"

	pktNats "emoflow-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	JournalController controller.IJournalController

	// Background services (exposed for main.go shutdown handling)
	MemoryService service.IMemoryService

	// Shared infrastructure
	Logger logger.ILogger
}

// newPipelineLogger gives the RAG components their own append-only log file
// so per-turn diagnostics stay out of the structured application log. Falls
// back to stdout when the file cannot be opened.
func newPipelineLogger(logPath string) *log.Logger {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[PIPELINE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLogger := newPipelineLogger(filepath.Join("logs", "llm_pipeline.log"))

	// 2. Event bus (in-process task queue)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		if cfg.Ai.GoogleGeminiKey == "" {
			log.Fatalf("[FATAL] GOOGLE_GEMINI_API_KEY is required for the gemini embedding provider")
		}
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GoogleGeminiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GoogleGeminiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Optional NATS event publisher; the app runs fine without it
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// 5. Conversation pipeline
	stateRepo := memory.NewStateRepository()
	sessionManager := session.NewManager(stateRepo, pipelineLogger)
	searchCache := search.NewCache(pipelineLogger)
	distiller := search.NewDistiller(llmProvider, pipelineLogger)
	retriever := search.NewRetriever(embeddingProvider, distiller, pipelineLogger, search.DefaultConfig())
	analyzer := analyze.NewAnalyzer(llmProvider, pipelineLogger)
	bypass := pipeline.NewBypassPipeline(pipelineLogger)
	chatPipeline := pipeline.NewChatPipeline(
		analyzer,
		retriever,
		searchCache,
		llmProvider,
		bypass,
		pipelineLogger,
		cfg.Pipeline.Enabled,
	)
	if !cfg.Pipeline.Enabled {
		log.Printf("[WARN] Chat pipeline is DISABLED, serving bypass replies")
	}

	// 6. Services
	memoryService := service.NewMemoryService(
		pubSub,
		cfg.Topics.ExtractMemory,
		uowFactory,
		llmProvider,
		natsPub,
		sysLogger,
	)
	chatService := service.NewChatService(uowFactory, sessionManager, chatPipeline, searchCache, sysLogger)
	journalService := service.NewJournalService(uowFactory, memoryService, natsPub, sysLogger)

	// 7. Controllers
	chatController := controller.NewChatController(chatService)
	journalController := controller.NewJournalController(journalService, memoryService)

	return &Container{
		ChatController:    chatController,
		JournalController: journalController,
		MemoryService:     memoryService,
		Logger:            sysLogger,
	}
}
