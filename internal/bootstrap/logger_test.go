package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "llm_pipeline.log")

	pipelineLogger := newPipelineLogger(logPath)
	pipelineLogger.Println("retrieval skipped: stage OPENING")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "retrieval skipped: stage OPENING")
}

func TestNewPipelineLoggerAppendsAcrossOpens(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "llm_pipeline.log")

	newPipelineLogger(logPath).Println("first turn")
	newPipelineLogger(logPath).Println("second turn")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first turn")
	assert.Contains(t, string(data), "second turn")
}

func TestNewPipelineLoggerFallsBackToStdout(t *testing.T) {
	// A regular file where the directory should be makes OpenFile fail.
	blocker := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	pipelineLogger := newPipelineLogger(filepath.Join(blocker, "llm_pipeline.log"))

	require.NotNil(t, pipelineLogger)
	assert.Equal(t, "[PIPELINE] ", pipelineLogger.Prefix())
}
