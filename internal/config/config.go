package config

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Pipeline PipelineConfig
	Topics   TopicConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "gemini-2.0-flash"
	EmbeddingProvider string // "ollama" or "gemini"
	EmbeddingModel    string
	OllamaBaseURL     string
	GoogleGeminiKey   string
}

type PipelineConfig struct {
	// Enabled is the rollback switch: false serves the fixed bypass reply.
	Enabled bool
}

type TopicConfig struct {
	ExtractMemory string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GoogleGeminiKey:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			Enabled: getEnvAsBool("CHAT_PIPELINE_ENABLED", true),
		},
		Topics: TopicConfig{
			ExtractMemory: getEnv("EXTRACT_MEMORY_TOPIC_NAME", "JOURNAL_EXTRACT_MEMORY"),
		},
	}
}

// Validate enforces the credentials the process cannot run without.
// A missing secret must stop startup, not surface later as failing requests.
func (c *Config) Validate() error {
	if c.App.JwtSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Database.Connection == "" {
		return errors.New("DB_CONNECTION_STRING is required")
	}
	if c.Ai.GoogleGeminiKey == "" && (c.Ai.LLMProvider == "gemini" || c.Ai.EmbeddingProvider == "gemini") {
		return errors.New("GOOGLE_GEMINI_API_KEY is required when a gemini provider is selected")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
