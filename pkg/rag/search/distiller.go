package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"emoflow-be/pkg/llm"
)

// Distiller turns raw knowledge snippets into short, imperative,
// jargon-free bullet points through a single text-generation call.
type Distiller struct {
	llmProvider llm.Provider
	logger      *log.Logger
}

func NewDistiller(llmProvider llm.Provider, logger *log.Logger) *Distiller {
	return &Distiller{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// maxBulletRunes loosely enforces the "short" contract after generation.
// Overlong lines are dropped rather than truncated mid-word.
const maxBulletRunes = 40

// Distill returns 2-3 bullets, one per line from the model, stripped of
// list markers. Any failure yields an empty list - the turn proceeds with
// no supplementary knowledge.
func (d *Distiller) Distill(ctx context.Context, snippets []string) []string {
	if len(snippets) == 0 {
		return nil
	}

	prompt := d.buildPrompt(snippets)
	response, err := d.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		d.logger.Printf("[DISTILL] call failed, continuing without knowledge: %v", err)
		return nil
	}

	bullets := ParseBullets(response)
	d.logger.Printf("[DISTILL] %d snippets -> %d bullets", len(snippets), len(bullets))
	return bullets
}

func (d *Distiller) buildPrompt(snippets []string) string {
	var b strings.Builder

	b.WriteString("Below are excerpts from psychology reference material.\n")
	b.WriteString("Condense them into 2-3 actionable suggestions.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- each suggestion on its own line, no list markers or numbering\n")
	b.WriteString("- imperative voice, no jargon, no source references\n")
	b.WriteString("- keep each suggestion under 20 words\n\n")

	for i, s := range snippets {
		fmt.Fprintf(&b, "Excerpt %d:\n%s\n\n", i+1, strings.TrimSpace(s))
	}

	return b.String()
}

// ParseBullets splits model output into cleaned bullet lines, stripping
// leading markers ("-", "*", "1." etc) and dropping blank or overlong lines.
func ParseBullets(response string) []string {
	var bullets []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•·")
		line = trimListNumber(line)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len([]rune(line)) > maxBulletRunes {
			continue
		}
		bullets = append(bullets, line)
		if len(bullets) == 3 {
			break
		}
	}
	return bullets
}

// trimListNumber removes a leading "1." / "2)" style marker if present.
func trimListNumber(line string) string {
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == '.' || r == ')') && i > 0 {
			return line[i+1:]
		}
		break
	}
	return line
}
