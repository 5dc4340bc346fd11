package analyze

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"emoflow-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestStageForRound(t *testing.T) {
	tests := []struct {
		round int
		want  string
	}{
		{1, StageOpening},
		{2, StageOpening},
		{3, StageAdvice},
		{6, StageAdvice},
		{7, StageClosing},
		{20, StageClosing},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stageForRound(tt.round), "round %d", tt.round)
	}
}

func TestAnalyzeFallsBackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("timeout")}
	a := NewAnalyzer(provider, discardLogger())

	analysis := a.Analyze(context.Background(), 1, "", "I haven't slept well in days")

	require.NotNil(t, analysis)
	assert.Equal(t, StageOpening, analysis.Stage)
	assert.Equal(t, EmotionNeutral, analysis.Emotion)
	assert.Equal(t, AskGentle, analysis.AskMode)
	assert.Equal(t, PaceNormal, analysis.Pace)
	assert.False(t, analysis.NeedRetrieval)
	assert.Empty(t, analysis.Queries)
}

func TestAnalyzeFallsBackOnGarbageOutput(t *testing.T) {
	provider := &stubProvider{response: "I think the user is sad."}
	a := NewAnalyzer(provider, discardLogger())

	analysis := a.Analyze(context.Background(), 8, "", "thanks, that helped")

	assert.Equal(t, StageClosing, analysis.Stage)
	assert.Equal(t, IntentCasual, analysis.Intent)
}

func TestParseOrDefaultMergesOnlyValidFields(t *testing.T) {
	// stage invalid, pace missing, queries over the cap
	response := `Sure! {"emotion":"Anxious","stage":"PANIC","intent":"venting",
		"ask_mode":"NONE","need_retrieval":true,
		"queries":["sleep hygiene","insomnia techniques","  ","anxiety at night","one too many"]}`

	analysis := parseOrDefault(response, 4)

	assert.Equal(t, "anxious", analysis.Emotion)
	assert.Equal(t, StageAdvice, analysis.Stage) // invalid value fell back to round-derived default
	assert.Equal(t, IntentVenting, analysis.Intent)
	assert.Equal(t, AskNone, analysis.AskMode)
	assert.Equal(t, PaceNormal, analysis.Pace) // missing keeps default
	assert.True(t, analysis.NeedRetrieval)
	assert.Equal(t, []string{"sleep hygiene", "insomnia techniques", "anxiety at night"}, analysis.Queries)
}

func TestAskModeCorrection(t *testing.T) {
	tests := []struct {
		name    string
		in      TurnAnalysis
		wantAsk string
	}{
		{
			name:    "advice + wants_advice + gentle upgrades",
			in:      TurnAnalysis{Stage: StageAdvice, Intent: IntentWantsAdvice, AskMode: AskGentle},
			wantAsk: AskReflective,
		},
		{
			name:    "advice + narrating + gentle upgrades",
			in:      TurnAnalysis{Stage: StageAdvice, Intent: IntentNarrating, AskMode: AskGentle},
			wantAsk: AskReflective,
		},
		{
			name:    "opening stage untouched",
			in:      TurnAnalysis{Stage: StageOpening, Intent: IntentWantsAdvice, AskMode: AskGentle},
			wantAsk: AskGentle,
		},
		{
			name:    "explicit NONE untouched",
			in:      TurnAnalysis{Stage: StageAdvice, Intent: IntentWantsAdvice, AskMode: AskNone},
			wantAsk: AskNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.in
			applyAskModeCorrection(&a)
			assert.Equal(t, tt.wantAsk, a.AskMode)
		})
	}
}

func TestAnalyzeParsesWellFormedResponse(t *testing.T) {
	provider := &stubProvider{response: `{"emotion":"sad","stage":"ADVICE","intent":"wants_advice",
		"ask_mode":"GENTLE","pace":"SLOW","need_retrieval":true,"queries":["coping with grief"]}`}
	a := NewAnalyzer(provider, discardLogger())

	analysis := a.Analyze(context.Background(), 4, "Current emotion: sad", "what should I do?")

	assert.Equal(t, "sad", analysis.Emotion)
	assert.Equal(t, StageAdvice, analysis.Stage)
	// correction rule fired
	assert.Equal(t, AskReflective, analysis.AskMode)
	assert.Equal(t, PaceSlow, analysis.Pace)
	assert.True(t, analysis.NeedRetrieval)
	assert.Equal(t, []string{"coping with grief"}, analysis.Queries)
	assert.Equal(t, 1, provider.calls)
}
