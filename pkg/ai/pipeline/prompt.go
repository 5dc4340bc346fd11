package pipeline

import (
	"fmt"
	"strings"

	"emoflow-be/pkg/rag/analyze"
)

// PromptBuilder assembles the generation prompt for one turn from the
// accumulated state summary, the turn analysis and any retrieved knowledge.
type PromptBuilder struct {
	stateSummary string
	analysis     *analyze.TurnAnalysis
	bullets      []string
	question     string
}

func NewPromptBuilder(stateSummary string, analysis *analyze.TurnAnalysis, bullets []string, question string) *PromptBuilder {
	return &PromptBuilder{
		stateSummary: stateSummary,
		analysis:     analysis,
		bullets:      bullets,
		question:     question,
	}
}

func (b *PromptBuilder) Build() string {
	var prompt strings.Builder

	prompt.WriteString("You are a warm, attentive emotional-support companion.\n\n")

	b.writeSessionContext(&prompt)
	b.writeKnowledge(&prompt)
	b.writeGuidelines(&prompt)

	prompt.WriteString("<user_message>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_message>\n")

	return prompt.String()
}

func (b *PromptBuilder) writeSessionContext(prompt *strings.Builder) {
	if b.stateSummary == "" {
		return
	}
	prompt.WriteString("<session_context>\n")
	prompt.WriteString(b.stateSummary)
	prompt.WriteString("\n</session_context>\n\n")
}

func (b *PromptBuilder) writeKnowledge(prompt *strings.Builder) {
	if len(b.bullets) == 0 {
		return
	}
	prompt.WriteString("<supporting_knowledge>\n")
	prompt.WriteString("Weave these in naturally where they fit; never quote or cite them:\n")
	for _, bullet := range b.bullets {
		fmt.Fprintf(prompt, "- %s\n", bullet)
	}
	prompt.WriteString("</supporting_knowledge>\n\n")
}

func (b *PromptBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")

	switch b.analysis.Stage {
	case analyze.StageOpening:
		prompt.WriteString("The conversation is just starting: make the user feel heard before anything else.\n")
	case analyze.StageAdvice:
		prompt.WriteString("The user is working through the problem: offer one concrete, gentle suggestion at most.\n")
	case analyze.StageClosing:
		prompt.WriteString("The conversation is winding down: consolidate and encourage, no new topics.\n")
	}

	switch b.analysis.AskMode {
	case analyze.AskGentle:
		prompt.WriteString("End with a soft invitation to share more.\n")
	case analyze.AskReflective:
		prompt.WriteString("End with one open-ended reflective question.\n")
	case analyze.AskNone:
		prompt.WriteString("Do not end with a question.\n")
	}

	if b.analysis.Pace == analyze.PaceSlow {
		prompt.WriteString("Keep it short and unhurried; the user is overwhelmed.\n")
	}
	if b.analysis.Emotion != "" && b.analysis.Emotion != analyze.EmotionNeutral {
		fmt.Fprintf(prompt, "The user currently feels %s; acknowledge it without labeling them.\n", b.analysis.Emotion)
	}

	prompt.WriteString("Reply in plain, warm language. No lists, no clinical terms.\n")
	prompt.WriteString("</guidelines>\n\n")
}
