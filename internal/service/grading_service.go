package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/academy-uk/exam-grader-api/internal/models"
	"github.com/academy-uk/exam-grader-api/internal/observability"
)

// ErrDuplicateSubmission indicates an identical submission arrived within the
// dedupe window.
var ErrDuplicateSubmission = errors.New("duplicate exam submission")

const dedupeTTL = 5 * time.Minute

// gradedSubject is the NATS subject grading events are published on.
const gradedSubject = "exam.graded"

// GradingService orchestrates the three section graders for one submission.
// The objective grader runs synchronously; the writing and speaking
// evaluators run concurrently so total latency is bounded by the slower of
// the two external pipelines. Every sub-evaluator resolves to a definite
// outcome, so Grade never fails once the dedupe check has passed.
type GradingService interface {
	Grade(ctx context.Context, submission models.Submission) (models.GradingResult, error)
}

type gradingService struct {
	objective ObjectiveGrader
	writing   WritingEvaluator
	speaking  SpeakingEvaluator
	cache     *redis.Client
	events    *nats.Conn
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewGradingService constructs the orchestrator. The redis client and NATS
// connection are optional; nil disables dedupe and event publishing.
func NewGradingService(objective ObjectiveGrader, writing WritingEvaluator, speaking SpeakingEvaluator, cache *redis.Client, events *nats.Conn, logger zerolog.Logger) GradingService {
	return &gradingService{
		objective: objective,
		writing:   writing,
		speaking:  speaking,
		cache:     cache,
		events:    events,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		tracer:    otel.Tracer("github.com/academy-uk/exam-grader-api/internal/service/grading"),
		now:       time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, submission models.Submission) (models.GradingResult, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade")
	span.SetAttributes(attribute.String("grading.reference_id", submission.ReferenceID))
	defer span.End()

	start := s.now()

	if s.cache != nil {
		key := fmt.Sprintf("exam:dedupe:%s", submissionChecksum(submission))
		ok, err := s.cache.SetNX(ctx, key, 1, dedupeTTL).Result()
		if err != nil {
			// Dedupe is best-effort; a cache outage must not block grading.
			s.logger.Warn().Err(err).Msg("dedupe check failed, continuing")
			span.RecordError(err)
		} else if !ok {
			span.SetStatus(codes.Error, "duplicate submission")
			observability.Submissions().WithLabelValues("duplicate").Inc()
			return models.GradingResult{}, ErrDuplicateSubmission
		}
	}

	objective := s.objective.Grade(submission.ListeningAnswers, submission.ReadingAnswers)

	var (
		wg       sync.WaitGroup
		writing  models.NarrativeFeedback
		speaking models.NarrativeFeedback
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		writing = s.writing.Evaluate(ctx, submission.WritingText)
	}()
	go func() {
		defer wg.Done()
		speaking = s.speaking.Evaluate(ctx, submission.SpeakingLink)
	}()
	wg.Wait()

	result := models.GradingResult{
		ReferenceID:  submission.ReferenceID,
		StudentName:  strings.TrimSpace(submission.StudentName),
		StudentEmail: strings.ToLower(strings.TrimSpace(submission.StudentEmail)),
		Objective:    objective,
		Writing:      writing,
		Speaking:     speaking,
		SpeakingLink: strings.TrimSpace(submission.SpeakingLink),
		GradedAt:     s.now().UTC(),
	}

	span.SetAttributes(
		attribute.Int("grading.objective_score", objective.Score),
		attribute.String("grading.writing_source", string(writing.Source)),
		attribute.String("grading.speaking_source", string(speaking.Source)),
	)
	observability.Submissions().WithLabelValues("graded").Inc()
	observability.GradingDuration().Observe(s.now().Sub(start).Seconds())

	s.publishGraded(result)

	return result, nil
}

type gradedEvent struct {
	ReferenceID    string    `json:"reference_id"`
	StudentEmail   string    `json:"student_email"`
	ObjectiveScore int       `json:"objective_score"`
	ObjectiveTotal int       `json:"objective_total"`
	WritingSource  string    `json:"writing_source"`
	SpeakingSource string    `json:"speaking_source"`
	GradedAt       time.Time `json:"graded_at"`
}

// publishGraded emits a grading event for downstream consumers. Best-effort.
func (s *gradingService) publishGraded(result models.GradingResult) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(gradedEvent{
		ReferenceID:    result.ReferenceID,
		StudentEmail:   result.StudentEmail,
		ObjectiveScore: result.Objective.Score,
		ObjectiveTotal: result.Objective.Total,
		WritingSource:  string(result.Writing.Source),
		SpeakingSource: string(result.Speaking.Source),
		GradedAt:       result.GradedAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode graded event")
		return
	}

	if err := s.events.Publish(gradedSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", gradedSubject).Msg("failed to publish graded event")
	}
}

func submissionChecksum(submission models.Submission) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(submission.StudentEmail))))
	h.Write([]byte(strings.TrimSpace(submission.StudentName)))
	for _, answer := range submission.ListeningAnswers {
		h.Write([]byte(strings.TrimSpace(answer)))
		h.Write([]byte{0})
	}
	for _, answer := range submission.ReadingAnswers {
		h.Write([]byte(strings.TrimSpace(answer)))
		h.Write([]byte{0})
	}
	h.Write([]byte(strings.TrimSpace(submission.WritingText)))
	h.Write([]byte(strings.TrimSpace(submission.SpeakingLink)))
	return hex.EncodeToString(h.Sum(nil))
}
