package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"emoflow-be/pkg/llm"
)

// Analyzer performs pure LLM-based turn classification.
// No retrieval, no database access - just understanding the turn.
type Analyzer struct {
	llmProvider llm.Provider
	logger      *log.Logger
}

func NewAnalyzer(llmProvider llm.Provider, logger *log.Logger) *Analyzer {
	return &Analyzer{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Analyze classifies one user turn. It never returns an error: any provider
// or parse failure degrades to the deterministic default record, so callers
// always receive a fully populated analysis.
func (a *Analyzer) Analyze(ctx context.Context, roundIndex int, stateSummary string, question string) *TurnAnalysis {
	prompt := a.buildPrompt(roundIndex, stateSummary, question)

	// Temperature 0 for deterministic classification output
	response, err := a.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		a.logger.Printf("[ANALYZE] classification call failed, using defaults: %v", err)
		return defaultAnalysis(roundIndex)
	}

	analysis := parseOrDefault(response, roundIndex)
	applyAskModeCorrection(analysis)

	a.logger.Printf("[ANALYZE] round=%d stage=%s emotion=%s intent=%s ask=%s retrieve=%v queries=%d",
		roundIndex, analysis.Stage, analysis.Emotion, analysis.Intent, analysis.AskMode,
		analysis.NeedRetrieval, len(analysis.Queries))

	return analysis
}

func (a *Analyzer) buildPrompt(roundIndex int, stateSummary string, question string) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a conversation analyzer for an emotional-support assistant.\n")
	prompt.WriteString("Your ONLY job is to classify the user's latest message. You do NOT reply to the user.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<session_state>\n")
	prompt.WriteString(fmt.Sprintf("ROUND: %d\n", roundIndex))
	if stateSummary != "" {
		prompt.WriteString(stateSummary)
		prompt.WriteString("\n")
	} else {
		prompt.WriteString("No accumulated state yet.\n")
	}
	prompt.WriteString("</session_state>\n\n")

	prompt.WriteString("<user_message>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</user_message>\n\n")

	prompt.WriteString("<field_definitions>\n")
	prompt.WriteString("emotion: dominant emotion in the message (sad, anxious, angry, tired, lonely, stressed, calm, happy, hopeful, neutral)\n")
	prompt.WriteString("stage: OPENING (getting oriented, first 1-2 rounds), ADVICE (working the problem), CLOSING (winding down)\n")
	prompt.WriteString("intent: venting | wants_advice | narrating | casual\n")
	prompt.WriteString("ask_mode: GENTLE (soft invitation to share more), REFLECTIVE (open-ended reflective question), NONE\n")
	prompt.WriteString("pace: SLOW (user is overwhelmed, slow down), NORMAL, FAST (user wants to get to the point)\n")
	prompt.WriteString("need_retrieval: true only if psychoeducation knowledge would concretely improve the reply\n")
	prompt.WriteString("queries: when need_retrieval is true, 1-3 short search queries for that knowledge\n")
	prompt.WriteString("</field_definitions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"emotion\": \"anxious\",\n")
	prompt.WriteString("  \"stage\": \"OPENING|ADVICE|CLOSING\",\n")
	prompt.WriteString("  \"intent\": \"venting|wants_advice|narrating|casual\",\n")
	prompt.WriteString("  \"ask_mode\": \"GENTLE|REFLECTIVE|NONE\",\n")
	prompt.WriteString("  \"pace\": \"SLOW|NORMAL|FAST\",\n")
	prompt.WriteString("  \"need_retrieval\": false,\n")
	prompt.WriteString("  \"queries\": []\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

// rawAnalysis mirrors TurnAnalysis with pointer fields so we can tell
// "absent" apart from "zero value" when merging over the defaults.
type rawAnalysis struct {
	Emotion       *string  `json:"emotion"`
	Stage         *string  `json:"stage"`
	Intent        *string  `json:"intent"`
	AskMode       *string  `json:"ask_mode"`
	Pace          *string  `json:"pace"`
	NeedRetrieval *bool    `json:"need_retrieval"`
	Queries       []string `json:"queries"`
}

// parseOrDefault merges the model output over defaultAnalysis(roundIndex).
// Only fields that are present AND valid overwrite the default; everything
// else keeps its conservative value.
func parseOrDefault(response string, roundIndex int) *TurnAnalysis {
	analysis := defaultAnalysis(roundIndex)

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return analysis
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return analysis
	}

	if raw.Emotion != nil && strings.TrimSpace(*raw.Emotion) != "" {
		analysis.Emotion = strings.ToLower(strings.TrimSpace(*raw.Emotion))
	}
	if raw.Stage != nil {
		if stage := strings.ToUpper(strings.TrimSpace(*raw.Stage)); validStage(stage) {
			analysis.Stage = stage
		}
	}
	if raw.Intent != nil && strings.TrimSpace(*raw.Intent) != "" {
		analysis.Intent = strings.ToLower(strings.TrimSpace(*raw.Intent))
	}
	if raw.AskMode != nil {
		if ask := strings.ToUpper(strings.TrimSpace(*raw.AskMode)); validAskMode(ask) {
			analysis.AskMode = ask
		}
	}
	if raw.Pace != nil {
		if pace := strings.ToUpper(strings.TrimSpace(*raw.Pace)); validPace(pace) {
			analysis.Pace = pace
		}
	}
	if raw.NeedRetrieval != nil {
		analysis.NeedRetrieval = *raw.NeedRetrieval
	}

	queries := make([]string, 0, maxQueries)
	for _, q := range raw.Queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == maxQueries {
			break
		}
	}
	analysis.Queries = queries

	return analysis
}

// applyAskModeCorrection upgrades GENTLE to REFLECTIVE once advice-giving
// has begun and the user is actively working the problem: a stronger
// open-ended prompt fits better there.
func applyAskModeCorrection(a *TurnAnalysis) {
	if a.Stage == StageAdvice &&
		(a.Intent == IntentWantsAdvice || a.Intent == IntentNarrating) &&
		a.AskMode == AskGentle {
		a.AskMode = AskReflective
	}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
