package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/academy-uk/exam-grader-api/internal/models"
	"github.com/academy-uk/exam-grader-api/internal/observability"
	"github.com/academy-uk/exam-grader-api/pkg/ai"
)

var speakingCriteria = []string{"fluency", "pronunciation", "lexical_resource", "grammatical_accuracy"}

// maxAudioBytes caps how much of the remote recording is read. Matches the
// transcription provider's upload limit.
const maxAudioBytes = 25 << 20

// SpeakingEvaluator grades the spoken-response section. The pipeline moves
// through fetch, transcribe and feedback stages; any stage failure resolves
// to a terminal local-feedback notice instead of an error. No call ever
// returns a failure to the caller.
type SpeakingEvaluator interface {
	Evaluate(ctx context.Context, audioURL string) models.NarrativeFeedback
}

type speakingEvaluator struct {
	httpClient  *http.Client
	transcriber ai.Transcriber
	generator   ai.Generator
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewSpeakingEvaluator constructs the speaking evaluator. Nil transcriber or
// generator components force the corresponding stage straight to fallback.
func NewSpeakingEvaluator(transcriber ai.Transcriber, generator ai.Generator, fetchTimeout time.Duration, logger zerolog.Logger) SpeakingEvaluator {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}

	return &speakingEvaluator{
		httpClient:  &http.Client{Timeout: fetchTimeout},
		transcriber: transcriber,
		generator:   generator,
		logger:      logger.With().Str("component", "speaking_evaluator").Logger(),
		tracer:      otel.Tracer("github.com/academy-uk/exam-grader-api/internal/service/speaking"),
	}
}

func (e *speakingEvaluator) Evaluate(ctx context.Context, audioURL string) models.NarrativeFeedback {
	ctx, span := e.tracer.Start(ctx, "speaking.evaluate")
	defer span.End()

	link := strings.TrimSpace(audioURL)
	if link == "" {
		span.SetAttributes(attribute.String("speaking.outcome", "missing_input"))
		observability.EvaluatorFallbacks().WithLabelValues("speaking", "missing_input").Inc()
		return models.NarrativeFeedback{
			Text:   "No speaking recording link was submitted for this exam, so the speaking section could not be assessed.",
			Source: models.FeedbackSourceUnavailable,
			Reason: "missing input",
		}
	}

	span.SetAttributes(attribute.String("speaking.audio_url", link))

	audio, filename, err := e.fetchAudio(ctx, link)
	if err != nil {
		return e.localFeedback(span, link, "audio fetch failed", err)
	}

	transcript, err := e.transcribe(ctx, audio, filename)
	if err != nil {
		return e.localFeedback(span, link, "transcription failed", err)
	}

	feedback, err := e.generateFeedback(ctx, transcript)
	if err != nil {
		return e.localFeedback(span, link, "feedback generation failed", err)
	}

	span.SetAttributes(attribute.String("speaking.outcome", "model"))

	var b strings.Builder
	b.WriteString("Transcript of the spoken response:\n---\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\n")
	b.WriteString(feedback.Report)

	return models.NarrativeFeedback{
		Text:   b.String(),
		Scores: criterionScores(feedback.Scores, speakingCriteria),
		Source: models.FeedbackSourceModel,
	}
}

// fetchAudio downloads the recording, following redirects, and sniffs the
// payload so the transcription upload carries a sensible filename. A non-2xx
// response or a non-audio payload is a stage failure.
func (e *speakingEvaluator) fetchAudio(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build audio request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("audio fetch returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read audio body: %w", err)
	}

	if len(audio) == 0 {
		return nil, "", fmt.Errorf("audio fetch returned an empty body")
	}

	detected := mimetype.Detect(audio)
	if !strings.HasPrefix(detected.String(), "audio/") && !strings.HasPrefix(detected.String(), "video/") {
		return nil, "", fmt.Errorf("fetched content is %s, not audio", detected.String())
	}

	return audio, "speaking" + detected.Extension(), nil
}

func (e *speakingEvaluator) transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if e.transcriber == nil {
		return "", fmt.Errorf("transcription service is not configured")
	}

	transcript, err := e.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	return transcript, nil
}

func (e *speakingEvaluator) generateFeedback(ctx context.Context, transcript string) (ai.FeedbackResult, error) {
	if e.generator == nil {
		return ai.FeedbackResult{}, fmt.Errorf("generative provider is not configured")
	}

	return e.generator.GenerateFeedback(ctx, ai.FeedbackRequest{
		Section:     "speaking",
		Text:        transcript,
		Criteria:    speakingCriteria,
		Description: "spoken response transcript",
	})
}

// localFeedback is the terminal degraded outcome: it names the recording
// link and the failure, asks for manual review, and omits rubric scores
// rather than fabricating them.
func (e *speakingEvaluator) localFeedback(span trace.Span, link, stage string, err error) models.NarrativeFeedback {
	e.logger.Warn().Err(err).Str("stage", stage).Str("audio_url", link).Msg("speaking evaluation degraded")
	span.RecordError(err)
	span.SetAttributes(attribute.String("speaking.outcome", "local_feedback"))
	observability.EvaluatorFallbacks().WithLabelValues("speaking", strings.ReplaceAll(stage, " ", "_")).Inc()

	var b strings.Builder
	b.WriteString("The speaking section could not be graded automatically.\n\n")
	fmt.Fprintf(&b, "Recording link: %s\n", link)
	fmt.Fprintf(&b, "Problem: %s (%v).\n\n", stage, err)
	b.WriteString("Please have an instructor listen to the recording and grade the speaking section manually.")

	return models.NarrativeFeedback{
		Text:   b.String(),
		Source: models.FeedbackSourceUnavailable,
		Reason: stage,
	}
}
