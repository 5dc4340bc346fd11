package analyze

// TurnAnalysis is the structured classification of a single user turn.
// Every field is always populated: downstream consumers never branch on
// absence.
type TurnAnalysis struct {
	Emotion       string   `json:"emotion"`        // e.g. "sad", "anxious", "neutral"
	Stage         string   `json:"stage"`          // OPENING | ADVICE | CLOSING
	Intent        string   `json:"intent"`         // e.g. "venting", "wants_advice"
	AskMode       string   `json:"ask_mode"`       // GENTLE | REFLECTIVE | NONE
	Pace          string   `json:"pace"`           // SLOW | NORMAL | FAST
	NeedRetrieval bool     `json:"need_retrieval"` // whether knowledge lookup would help
	Queries       []string `json:"queries"`        // retrieval queries, at most 3
}

// Stage constants
const (
	StageOpening = "OPENING"
	StageAdvice  = "ADVICE"
	StageClosing = "CLOSING"
)

// Ask-mode constants - how strongly the reply should invite further disclosure
const (
	AskGentle     = "GENTLE"     // soft invitation ("want to tell me more?")
	AskReflective = "REFLECTIVE" // open-ended reflective prompt
	AskNone       = "NONE"
)

// Pace constants
const (
	PaceSlow   = "SLOW"
	PaceNormal = "NORMAL"
	PaceFast   = "FAST"
)

// Intent constants (open set; these are the ones the pipeline branches on)
const (
	IntentVenting     = "venting"
	IntentWantsAdvice = "wants_advice"
	IntentNarrating   = "narrating"
	IntentCasual      = "casual"
)

const (
	EmotionNeutral = "neutral"
	maxQueries     = 3
)

// defaultAnalysis is the conservative fallback used whenever classification
// fails. The stage is the only field derived from input: early rounds are
// openings, mid rounds advice, late rounds closing.
func defaultAnalysis(roundIndex int) *TurnAnalysis {
	return &TurnAnalysis{
		Emotion:       EmotionNeutral,
		Stage:         stageForRound(roundIndex),
		Intent:        IntentCasual,
		AskMode:       AskGentle,
		Pace:          PaceNormal,
		NeedRetrieval: false,
		Queries:       []string{},
	}
}

// DefaultFor exposes the fallback record for callers that must replace a
// failed analysis themselves (e.g. the pipeline's panic guard).
func DefaultFor(roundIndex int) *TurnAnalysis {
	return defaultAnalysis(roundIndex)
}

func stageForRound(roundIndex int) string {
	switch {
	case roundIndex <= 2:
		return StageOpening
	case roundIndex <= 6:
		return StageAdvice
	default:
		return StageClosing
	}
}

func validStage(s string) bool {
	return s == StageOpening || s == StageAdvice || s == StageClosing
}

func validAskMode(s string) bool {
	return s == AskGentle || s == AskReflective || s == AskNone
}

func validPace(s string) bool {
	return s == PaceSlow || s == PaceNormal || s == PaceFast
}
