package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			JwtSecret: "super-secret",
		},
		Database: DatabaseConfig{
			Connection: "postgres://localhost:5432/emoflow",
		},
		Ai: AIConfig{
			LLMProvider:       "ollama",
			EmbeddingProvider: "ollama",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "ollama-only config with secret and dsn passes",
			mutate: func(*Config) {},
		},
		{
			name:    "empty jwt secret is fatal",
			mutate:  func(c *Config) { c.App.JwtSecret = "" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "empty database connection is fatal",
			mutate:  func(c *Config) { c.Database.Connection = "" },
			wantErr: "DB_CONNECTION_STRING",
		},
		{
			name:    "gemini embedding provider without key is fatal",
			mutate:  func(c *Config) { c.Ai.EmbeddingProvider = "gemini" },
			wantErr: "GOOGLE_GEMINI_API_KEY",
		},
		{
			name:    "gemini llm provider without key is fatal",
			mutate:  func(c *Config) { c.Ai.LLMProvider = "gemini" },
			wantErr: "GOOGLE_GEMINI_API_KEY",
		},
		{
			name: "gemini providers with key pass",
			mutate: func(c *Config) {
				c.Ai.LLMProvider = "gemini"
				c.Ai.EmbeddingProvider = "gemini"
				c.Ai.GoogleGeminiKey = "key-123"
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()

			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
