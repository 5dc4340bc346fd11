package pipeline

import (
	"context"
	"log"
)

// bypassPlaceholder is the fixed reply served while the pipeline is
// feature-flagged off (controlled rollback mode).
const bypassPlaceholder = "Thanks for sharing. I'm listening - please go on."

// BypassPipeline skips the whole analyze/retrieve/generate pipeline and
// returns a fixed placeholder. Used for controlled rollback via the
// pipeline feature flag.
type BypassPipeline struct {
	logger *log.Logger
}

func NewBypassPipeline(logger *log.Logger) *BypassPipeline {
	return &BypassPipeline{logger: logger}
}

func (p *BypassPipeline) Execute(ctx context.Context, question string) *ChatResult {
	p.logger.Printf("[BYPASS] pipeline disabled, returning placeholder (question length %d)", len(question))
	return &ChatResult{
		Answer: bypassPlaceholder,
		Debug: DebugEnvelope{
			Path:       "bypass",
			RagBullets: []string{},
		},
	}
}
