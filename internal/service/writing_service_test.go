package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/academy-uk/exam-grader-api/internal/models"
	"github.com/academy-uk/exam-grader-api/pkg/ai"
)

type generatorStub struct {
	calls  int
	result ai.FeedbackResult
	err    error
}

func (g *generatorStub) GenerateFeedback(ctx context.Context, req ai.FeedbackRequest) (ai.FeedbackResult, error) {
	g.calls++
	return g.result, g.err
}

func TestWritingEvaluatorMissingInput(t *testing.T) {
	generator := &generatorStub{}
	evaluator := NewWritingEvaluator(generator, testLogger())

	feedback := evaluator.Evaluate(context.Background(), "   \n\t ")

	require.Equal(t, models.FeedbackSourceUnavailable, feedback.Source)
	require.Equal(t, "missing input", feedback.Reason)
	require.Empty(t, feedback.Scores)
	require.Contains(t, feedback.Text, "No writing sample")
	require.Zero(t, generator.calls, "missing input must not invoke the provider")
}

func TestWritingEvaluatorModelSuccess(t *testing.T) {
	generator := &generatorStub{
		result: ai.FeedbackResult{
			Report: "Well structured essay.",
			Scores: map[string]int{"grammar": 7, "vocabulary": 6, "coherence": 8, "task_achievement": 7},
		},
	}
	evaluator := NewWritingEvaluator(generator, testLogger())

	feedback := evaluator.Evaluate(context.Background(), "My essay about walking.")

	require.Equal(t, models.FeedbackSourceModel, feedback.Source)
	require.Equal(t, "Well structured essay.", feedback.Text)
	require.Len(t, feedback.Scores, 4)
	require.Equal(t, models.CriterionScore{Criterion: "grammar", Score: 7}, feedback.Scores[0])
	require.Equal(t, 1, generator.calls)
}

func TestWritingEvaluatorProviderFailureFallsBack(t *testing.T) {
	generator := &generatorStub{err: errors.New("503 model loading")}
	evaluator := NewWritingEvaluator(generator, testLogger())

	text := "Walking is good. It helps the heart! Does it help the mind? Yes it does."
	feedback := evaluator.Evaluate(context.Background(), text)

	require.Equal(t, models.FeedbackSourceHeuristic, feedback.Source)
	require.Len(t, feedback.Scores, 4)
	for _, score := range feedback.Scores {
		require.GreaterOrEqual(t, score.Score, 1)
		require.LessOrEqual(t, score.Score, 9)
	}
	require.Contains(t, feedback.Text, "15 words")
	require.Contains(t, feedback.Text, "4 sentences")
	require.Contains(t, feedback.Text, "not human-verified")
}

func TestWritingEvaluatorNilGeneratorUsesHeuristic(t *testing.T) {
	evaluator := NewWritingEvaluator(nil, testLogger())

	feedback := evaluator.Evaluate(context.Background(), "One short sentence.")

	require.Equal(t, models.FeedbackSourceHeuristic, feedback.Source)
	require.Len(t, feedback.Scores, 4)
}

func TestHeuristicFeedbackDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

	first := heuristicFeedback(text)
	second := heuristicFeedback(text)

	require.Equal(t, first, second)
	document := first.Document()
	require.Contains(t, document, "Rubric scores:")
	require.Contains(t, document, "Average:")
}

func TestHeuristicScoresCappedAtNine(t *testing.T) {
	feedback := heuristicFeedback(strings.Repeat("Sentence after sentence after sentence. ", 200))

	for _, score := range feedback.Scores {
		require.LessOrEqual(t, score.Score, 9)
	}
}

func TestCountSentences(t *testing.T) {
	require.Equal(t, 3, countSentences("One. Two! Three?"))
	require.Equal(t, 1, countSentences("No terminator here"))
	require.Equal(t, 3, countSentences("Dots... everywhere. Still three"))
	require.Equal(t, 0, countSentences("..."))
}
