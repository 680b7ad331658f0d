package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/academy-uk/exam-grader-api/internal/models"
	"github.com/academy-uk/exam-grader-api/internal/observability"
	"github.com/academy-uk/exam-grader-api/pkg/ai"
)

var writingCriteria = []string{"grammar", "vocabulary", "coherence", "task_achievement"}

// heuristicRule derives one rubric score from a text statistic via
// score = min(9, base + count/divisor). Constants are fixed so the fallback
// path stays deterministic and testable.
type heuristicRule struct {
	criterion   string
	base        int
	divisor     int
	bySentences bool
}

var writingHeuristic = []heuristicRule{
	{criterion: "grammar", base: 3, divisor: 60},
	{criterion: "vocabulary", base: 2, divisor: 40},
	{criterion: "coherence", base: 3, divisor: 3, bySentences: true},
	{criterion: "task_achievement", base: 2, divisor: 30},
}

// WritingEvaluator produces narrative feedback for the writing section. It
// never fails: every call resolves to model feedback, the local heuristic, or
// a missing-input notice.
type WritingEvaluator interface {
	Evaluate(ctx context.Context, text string) models.NarrativeFeedback
}

type writingEvaluator struct {
	generator ai.Generator
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewWritingEvaluator constructs the writing evaluator. A nil generator puts
// the evaluator into permanent local-fallback mode.
func NewWritingEvaluator(generator ai.Generator, logger zerolog.Logger) WritingEvaluator {
	return &writingEvaluator{
		generator: generator,
		logger:    logger.With().Str("component", "writing_evaluator").Logger(),
		tracer:    otel.Tracer("github.com/academy-uk/exam-grader-api/internal/service/writing"),
	}
}

func (e *writingEvaluator) Evaluate(ctx context.Context, text string) models.NarrativeFeedback {
	ctx, span := e.tracer.Start(ctx, "writing.evaluate")
	defer span.End()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		span.SetAttributes(attribute.String("writing.outcome", "missing_input"))
		observability.EvaluatorFallbacks().WithLabelValues("writing", "missing_input").Inc()
		return models.NarrativeFeedback{
			Text:   "No writing sample was submitted for this exam, so the writing section could not be assessed.",
			Source: models.FeedbackSourceUnavailable,
			Reason: "missing input",
		}
	}

	if e.generator != nil {
		result, err := e.generator.GenerateFeedback(ctx, ai.FeedbackRequest{
			Section:     "writing",
			Text:        trimmed,
			Criteria:    writingCriteria,
			Description: "writing sample",
		})
		if err == nil {
			span.SetAttributes(attribute.String("writing.outcome", "model"))
			return models.NarrativeFeedback{
				Text:   result.Report,
				Scores: criterionScores(result.Scores, writingCriteria),
				Source: models.FeedbackSourceModel,
			}
		}

		e.logger.Warn().Err(err).Msg("model evaluation failed, using local heuristic")
		span.RecordError(err)
		observability.EvaluatorFallbacks().WithLabelValues("writing", "provider_failure").Inc()
	} else {
		observability.EvaluatorFallbacks().WithLabelValues("writing", "no_credential").Inc()
	}

	span.SetAttributes(attribute.String("writing.outcome", "heuristic"))
	return heuristicFeedback(trimmed)
}

// heuristicFeedback derives rubric scores from word and sentence counts.
// Pure and deterministic.
func heuristicFeedback(text string) models.NarrativeFeedback {
	words := len(strings.Fields(text))
	sentences := countSentences(text)

	scores := make([]models.CriterionScore, 0, len(writingHeuristic))
	sum := 0
	for _, rule := range writingHeuristic {
		count := words
		if rule.bySentences {
			count = sentences
		}
		score := rule.base + count/rule.divisor
		if score > 9 {
			score = 9
		}
		scores = append(scores, models.CriterionScore{Criterion: rule.criterion, Score: score})
		sum += score
	}

	var b strings.Builder
	b.WriteString("Automated heuristic assessment of the writing sample.\n\n")
	fmt.Fprintf(&b, "The submission contains %d words across %d sentences.\n", words, sentences)
	b.WriteString("Scores below are derived from length and structure statistics only. ")
	b.WriteString("This is an automated heuristic, not human-verified grading; ")
	b.WriteString("an instructor should review the sample for a definitive band score.")

	return models.NarrativeFeedback{
		Text:   b.String(),
		Scores: scores,
		Source: models.FeedbackSourceHeuristic,
		Reason: fmt.Sprintf("heuristic average %.1f/9", float64(sum)/float64(len(scores))),
	}
}

// countSentences counts non-empty segments split on sentence-terminating
// punctuation.
func countSentences(text string) int {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	count := 0
	for _, segment := range segments {
		if strings.TrimSpace(segment) != "" {
			count++
		}
	}

	return count
}

func criterionScores(scores map[string]int, criteria []string) []models.CriterionScore {
	out := make([]models.CriterionScore, 0, len(criteria))
	for _, criterion := range criteria {
		out = append(out, models.CriterionScore{Criterion: criterion, Score: scores[criterion]})
	}

	return out
}
