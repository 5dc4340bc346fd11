package tracker

import (
	"fmt"
	"strings"
	"time"
)

// Turn represents one raw conversation turn kept in session history
type Turn struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// State is the serializable form of a tracker, persisted as the durable
// session record payload and restored on cache miss.
type State struct {
	CurrentEmotion   string   `json:"current_emotion,omitempty"`
	EmotionHistory   []string `json:"emotion_history"`
	TechniqueStack   []string `json:"technique_stack"`
	TechniqueResults []bool   `json:"technique_results"`
	UserValues       []string `json:"user_values"`
	UserConcerns     []string `json:"user_concerns"`
	History          []Turn   `json:"history"`
}

// StateTracker accumulates cross-turn dialogue state for one (user, session).
// It is a pure in-memory structure; persistence is the session manager's job.
type StateTracker struct {
	state     State
	extractor FeatureExtractor
}

// NewStateTracker creates an empty tracker with the default regex extractor.
func NewStateTracker() *StateTracker {
	return &StateTracker{extractor: NewRegexExtractor()}
}

// NewStateTrackerWithExtractor allows swapping the value/concern extraction strategy.
func NewStateTrackerWithExtractor(extractor FeatureExtractor) *StateTracker {
	if extractor == nil {
		extractor = NewRegexExtractor()
	}
	return &StateTracker{extractor: extractor}
}

// UpdateEmotion sets the current emotion and appends to the history.
// The append is unconditional: the history doubles as the chronological
// emotion log, so repeats are meaningful.
func (t *StateTracker) UpdateEmotion(emotion string) {
	if emotion == "" {
		return
	}
	t.state.CurrentEmotion = emotion
	t.state.EmotionHistory = append(t.state.EmotionHistory, emotion)
}

// CurrentEmotion returns the latest emotion label ("" when none recorded).
func (t *StateTracker) CurrentEmotion() string {
	return t.state.CurrentEmotion
}

// EmotionHistory returns the full append-only emotion log.
func (t *StateTracker) EmotionHistory() []string {
	return t.state.EmotionHistory
}

// RecordTechnique appends the technique and its outcome together, keeping
// stack and results index-aligned. An empty technique id is a no-op.
func (t *StateTracker) RecordTechnique(technique string, success bool) {
	if strings.TrimSpace(technique) == "" {
		return
	}
	t.state.TechniqueStack = append(t.state.TechniqueStack, technique)
	t.state.TechniqueResults = append(t.state.TechniqueResults, success)
}

// TechniqueStack returns the ordered technique log.
func (t *StateTracker) TechniqueStack() []string {
	return t.state.TechniqueStack
}

// TechniqueResults returns the ordered outcome log.
func (t *StateTracker) TechniqueResults() []bool {
	return t.state.TechniqueResults
}

// ShouldSwitchTechnique reports whether the last `window` recorded results
// all failed. Fewer than `window` results is never a switch signal.
func (t *StateTracker) ShouldSwitchTechnique(window int) bool {
	if window <= 0 {
		window = 3
	}
	results := t.state.TechniqueResults
	if len(results) < window {
		return false
	}
	for _, ok := range results[len(results)-window:] {
		if ok {
			return false
		}
	}
	return true
}

// AppendTurn records one raw (role, content) pair.
func (t *StateTracker) AppendTurn(role, content string) {
	t.state.History = append(t.state.History, Turn{Role: role, Content: content})
}

// History returns the raw turn history.
func (t *StateTracker) History() []Turn {
	return t.state.History
}

// UserValues returns the deduplicated, insertion-ordered value set.
func (t *StateTracker) UserValues() []string {
	return t.state.UserValues
}

// UserConcerns returns the deduplicated, insertion-ordered concern set.
func (t *StateTracker) UserConcerns() []string {
	return t.state.UserConcerns
}

// ExtractFeatures runs the configured extractor over free text and merges any
// matched values/concerns into the state. No match contributes nothing.
func (t *StateTracker) ExtractFeatures(text string) {
	if t.extractor == nil {
		return
	}
	values, concerns := t.extractor.Extract(text)
	t.state.UserValues = mergeUnique(t.state.UserValues, values)
	t.state.UserConcerns = mergeUnique(t.state.UserConcerns, concerns)
}

// EmotionTrend derives a coarse label from the most recent 2-3 emotions:
// "improving", "declining", "volatile" or "stable". Mixed sequences are
// volatile; fewer than 2 entries is stable.
func (t *StateTracker) EmotionTrend() string {
	history := t.state.EmotionHistory
	if len(history) < 2 {
		return "stable"
	}
	window := history
	if len(window) > 3 {
		window = window[len(window)-3:]
	}

	allEqual := true
	for _, e := range window[1:] {
		if e != window[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return "stable"
	}

	first := emotionPolarity(window[0])
	last := emotionPolarity(window[len(window)-1])
	switch {
	case first < 0 && last > 0:
		return "improving"
	case first > 0 && last < 0:
		return "declining"
	default:
		return "volatile"
	}
}

// emotionPolarity maps the known labels to a crude valence sign.
// Unknown labels count as neutral, which falls through to "volatile".
func emotionPolarity(emotion string) int {
	switch strings.ToLower(emotion) {
	case "happy", "calm", "hopeful", "relieved", "grateful":
		return 1
	case "sad", "angry", "anxious", "fearful", "tired", "lonely", "stressed":
		return -1
	default:
		return 0
	}
}

// Summary renders the human-readable state block injected into generation
// prompts. Empty sections are omitted entirely.
func (t *StateTracker) Summary(lastN int) string {
	if lastN <= 0 {
		lastN = 3
	}

	var b strings.Builder
	if t.state.CurrentEmotion != "" {
		b.WriteString(fmt.Sprintf("Current emotion: %s\n", t.state.CurrentEmotion))
	}
	if len(t.state.TechniqueStack) > 0 {
		stack := t.state.TechniqueStack
		if len(stack) > lastN {
			stack = stack[len(stack)-lastN:]
		}
		b.WriteString(fmt.Sprintf("Recent techniques: %s\n", strings.Join(stack, ", ")))
	}
	if len(t.state.UserValues) > 0 {
		b.WriteString(fmt.Sprintf("What the user values: %s\n", strings.Join(t.state.UserValues, "; ")))
	}
	if len(t.state.UserConcerns) > 0 {
		b.WriteString(fmt.Sprintf("User concerns: %s\n", strings.Join(t.state.UserConcerns, "; ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Snapshot returns a copy of the tracker state for serialization.
func (t *StateTracker) Snapshot() State {
	s := t.state
	s.EmotionHistory = append([]string(nil), t.state.EmotionHistory...)
	s.TechniqueStack = append([]string(nil), t.state.TechniqueStack...)
	s.TechniqueResults = append([]bool(nil), t.state.TechniqueResults...)
	s.UserValues = append([]string(nil), t.state.UserValues...)
	s.UserConcerns = append([]string(nil), t.state.UserConcerns...)
	s.History = append([]Turn(nil), t.state.History...)
	return s
}

// Restore replaces the tracker state with a previously persisted snapshot.
func (t *StateTracker) Restore(s State) {
	t.state = s
}

func mergeUnique(existing []string, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range incoming {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		existing = append(existing, v)
		seen[v] = true
	}
	return existing
}

// Touchpoint for logging: a compact single-line digest of the state.
func (t *StateTracker) Digest() string {
	return fmt.Sprintf("emotion=%s history=%d techniques=%d values=%d concerns=%d turns=%d at=%s",
		t.state.CurrentEmotion,
		len(t.state.EmotionHistory),
		len(t.state.TechniqueStack),
		len(t.state.UserValues),
		len(t.state.UserConcerns),
		len(t.state.History),
		time.Now().Format(time.RFC3339),
	)
}
