package search

// KnowledgeItem is a read-only snapshot of one retrieved knowledge chunk.
// Ranking is done purely on Score; Metadata is opaque to this package.
type KnowledgeItem struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"` // similarity in [0,1]
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Config encapsulates retrieval parameters
type Config struct {
	PerQueryTopK  int     // result bound for each individual query
	Threshold     float64 // minimum similarity kept after pooling
	MaxCandidates int     // cap on the pooled candidate list
	DistillTop    int     // how many top snippets feed the distillation call
}

// DefaultConfig returns the default retrieval configuration
func DefaultConfig() Config {
	return Config{
		PerQueryTopK:  10,
		Threshold:     0.50,
		MaxCandidates: 15,
		DistillTop:    5,
	}
}
