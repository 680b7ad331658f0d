package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/academy-uk/exam-grader-api/internal/models"
)

// Config holds runtime configuration values for the grading service. It is
// built once at startup and passed into each component; evaluators never read
// the environment at call time, so fallback behaviour is fixed for the
// lifetime of the process.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	FeedbackModel      string
	TranscriptionModel string
	EvaluationTimeout  time.Duration
	AudioFetchTimeout  time.Duration
	ReportRecipient    string
	ReportSender       string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	RedisURL           string
	NATSURL            string
	AnswerKey          models.AnswerKey
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AIEnabled reports whether the generative-text provider is reachable at all.
// Without a credential the evaluators run permanently in local fallback mode.
func (c Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// SMTPEnabled reports whether report delivery over SMTP is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// defaultAnswerKey matches the currently deployed exam paper. The key is
// configuration data, not logic: override it with GRADER_ANSWER_KEY when the
// paper changes.
func defaultAnswerKey() models.AnswerKey {
	return models.AnswerKey{
		Listening: []models.AnswerKeyEntry{
			{ID: "q1", Expected: "Smith"},
			{ID: "q2", Expected: "555-1234"},
			{ID: "q3", Expected: "Toothache"},
			{ID: "q4", Expected: "Tuesday"},
			{ID: "q5", Expected: "10:00"},
		},
		Reading: []models.AnswerKeyEntry{
			{ID: "r1", Expected: "B"},
			{ID: "r2", Expected: "B"},
			{ID: "r3", Expected: "B"},
			{ID: "r4", Expected: "B"},
			{ID: "r5", Expected: "B"},
			{ID: "r6", Expected: "accessible"},
			{ID: "r7", Expected: "weight"},
			{ID: "r8", Expected: "injuries"},
			{ID: "r9", Expected: "stress"},
			{ID: "r10", Expected: "natural"},
		},
	}
}

// ParseAnswerKey builds an answer key from a comma-separated list of
// "id=answer" pairs, e.g. "q1=Smith,r1=B". Identifiers starting with "q" are
// listening questions, "r" reading; pairs keep their given order.
func ParseAnswerKey(raw string) (models.AnswerKey, error) {
	var key models.AnswerKey
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		id, expected, found := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !found || id == "" {
			return models.AnswerKey{}, fmt.Errorf("invalid answer key entry %q", pair)
		}

		entry := models.AnswerKeyEntry{ID: id, Expected: strings.TrimSpace(expected)}
		switch {
		case strings.HasPrefix(id, "q"):
			key.Listening = append(key.Listening, entry)
		case strings.HasPrefix(id, "r"):
			key.Reading = append(key.Reading, entry)
		default:
			return models.AnswerKey{}, fmt.Errorf("unknown question section for %q", id)
		}
	}

	if key.Total() == 0 {
		return models.AnswerKey{}, fmt.Errorf("answer key is empty")
	}

	return key, nil
}

// Load reads configuration values from environment variables and an optional
// .env file. A missing provider credential is not an error; it switches the
// evaluators into permanent local-fallback mode.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Exam Grader API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8000")
	v.SetDefault("feedback.model", "gpt-4.1-mini")
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("evaluation.timeout", "45s")
	v.SetDefault("audio.fetch_timeout", "30s")
	v.SetDefault("report.recipient", "info@academy-uk.net")
	v.SetDefault("report.sender", "no-reply@academy-uk.net")
	v.SetDefault("smtp.port", 587)

	evalTimeout, err := time.ParseDuration(v.GetString("evaluation.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid evaluation timeout: %w", err)
	}

	fetchTimeout, err := time.ParseDuration(v.GetString("audio.fetch_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid audio fetch timeout: %w", err)
	}

	answerKey := defaultAnswerKey()
	if raw := v.GetString("answer_key"); raw != "" {
		answerKey, err = ParseAnswerKey(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid answer key override: %w", err)
		}
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		OpenAIAPIKey:       v.GetString("openai_api_key"),
		OpenAIBaseURL:      v.GetString("openai_base_url"),
		FeedbackModel:      v.GetString("feedback.model"),
		TranscriptionModel: v.GetString("transcription.model"),
		EvaluationTimeout:  evalTimeout,
		AudioFetchTimeout:  fetchTimeout,
		ReportRecipient:    v.GetString("report.recipient"),
		ReportSender:       v.GetString("report.sender"),
		SMTPHost:           v.GetString("smtp.host"),
		SMTPPort:           v.GetInt("smtp.port"),
		SMTPUsername:       v.GetString("smtp.username"),
		SMTPPassword:       v.GetString("smtp.password"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		AnswerKey:          answerKey,
	}

	if cfg.ReportRecipient == "" {
		return Config{}, fmt.Errorf("report recipient must be provided")
	}

	if cfg.SMTPPort <= 0 {
		cfg.SMTPPort = 587
	}

	return cfg, nil
}
