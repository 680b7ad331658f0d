package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of generative and transcription requests",
	}, []string{"operation", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed generative and transcription requests",
	}, []string{"operation", "model"})
)

// feedbackSchema constrains what the model may return before the pipeline
// trusts it. A payload that fails validation counts as a provider failure.
const feedbackSchema = `{
	"type": "object",
	"required": ["report", "scores"],
	"properties": {
		"report": {"type": "string", "minLength": 1},
		"scores": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "integer", "minimum": 1, "maximum": 9}
		}
	}
}`

var compiledFeedbackSchema = jsonschema.MustCompileString("feedback.json", feedbackSchema)

// OpenAIConfig defines configuration options for the OpenAI client.
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	FeedbackModel      string
	TranscriptionModel string
	Timeout            time.Duration
	Logger             zerolog.Logger
}

// OpenAIClient implements Generator and Transcriber against the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

var (
	_ Generator   = (*OpenAIClient)(nil)
	_ Transcriber = (*OpenAIClient)(nil)
)

// NewOpenAIClient builds a client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.FeedbackModel == "" {
		cfg.FeedbackModel = "gpt-4.1-mini"
	}

	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = "whisper-1"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/academy-uk/exam-grader-api/pkg/ai"),
		logger: cfg.Logger.With().Str("component", "openai_client").Logger(),
	}, nil
}

// GenerateFeedback sends the rubric prompt to the chat completion API and
// parses the structured response.
func (c *OpenAIClient) GenerateFeedback(parent context.Context, req FeedbackRequest) (FeedbackResult, error) {
	ctx, span := c.tracer.Start(parent, "openai.feedback", trace.WithAttributes(
		attribute.String("model", c.cfg.FeedbackModel),
		attribute.String("section", req.Section),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.FeedbackModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: examinerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildFeedbackPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.3,
	})
	aiDuration.WithLabelValues("feedback", c.cfg.FeedbackModel).Observe(time.Since(start).Seconds())
	if err != nil {
		return FeedbackResult{}, c.fail(span, "feedback", fmt.Errorf("openai feedback: %w", err))
	}

	if len(resp.Choices) == 0 {
		return FeedbackResult{}, c.fail(span, "feedback", fmt.Errorf("no choices returned from openai"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseFeedbackResponse(content, req.Criteria)
	if err != nil {
		return FeedbackResult{}, c.fail(span, "feedback", err)
	}

	return result, nil
}

// Transcribe submits raw audio bytes to the transcription endpoint.
func (c *OpenAIClient) Transcribe(parent context.Context, audio []byte, filename string) (string, error) {
	ctx, span := c.tracer.Start(parent, "openai.transcribe", trace.WithAttributes(
		attribute.String("model", c.cfg.TranscriptionModel),
		attribute.Int("audio_bytes", len(audio)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
	})
	aiDuration.WithLabelValues("transcription", c.cfg.TranscriptionModel).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", c.fail(span, "transcription", fmt.Errorf("openai transcription: %w", err))
	}

	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" {
		return "", c.fail(span, "transcription", fmt.Errorf("transcription returned no text"))
	}

	return transcript, nil
}

func (c *OpenAIClient) fail(span trace.Span, operation string, err error) error {
	model := c.cfg.FeedbackModel
	if operation == "transcription" {
		model = c.cfg.TranscriptionModel
	}
	aiFailures.WithLabelValues(operation, model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn().Err(err).Str("operation", operation).Msg("provider request failed")
	return err
}

const examinerSystemPrompt = "You are an expert English language examiner. " +
	"Respond with a JSON object containing a detailed \"report\" string and a \"scores\" object " +
	"mapping each requested criterion to an integer band score from 1 to 9."

func buildFeedbackPrompt(req FeedbackRequest) string {
	var b strings.Builder
	b.WriteString("Evaluate the following student's ")
	b.WriteString(req.Description)
	b.WriteString(" based on these criteria: ")
	b.WriteString(strings.Join(req.Criteria, ", "))
	b.WriteString(". Provide a detailed feedback report and a score from 1 to 9 for each criterion.\n\n")
	b.WriteString(req.Section)
	b.WriteString(" sample:\n---\n")
	b.WriteString(req.Text)
	b.WriteString("\n---\n\nReturn JSON.")
	return b.String()
}

func parseFeedbackResponse(content string, criteria []string) (FeedbackResult, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return FeedbackResult{}, fmt.Errorf("parse feedback json: %w", err)
	}

	if err := compiledFeedbackSchema.Validate(payload); err != nil {
		return FeedbackResult{}, fmt.Errorf("feedback payload rejected by schema: %w", err)
	}

	var result FeedbackResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return FeedbackResult{}, fmt.Errorf("decode feedback json: %w", err)
	}

	// Re-key scores to the requested criterion names; models echo them back
	// with varying casing and separators.
	normalized := make(map[string]int, len(criteria))
	for _, criterion := range criteria {
		score, ok := lookupScore(result.Scores, criterion)
		if !ok {
			return FeedbackResult{}, fmt.Errorf("feedback is missing a score for %q", criterion)
		}
		normalized[criterion] = score
	}
	result.Scores = normalized

	return result, nil
}

func lookupScore(scores map[string]int, criterion string) (int, bool) {
	if score, ok := scores[criterion]; ok {
		return score, true
	}

	canon := func(s string) string {
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, " ", "_")
		s = strings.ReplaceAll(s, "-", "_")
		return s
	}

	want := canon(criterion)
	for key, score := range scores {
		if canon(key) == want {
			return score, true
		}
	}

	return 0, false
}
