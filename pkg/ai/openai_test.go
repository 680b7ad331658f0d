package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error": {"message": "model unavailable"}}`)
			return
		}

		body := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func testRequest() FeedbackRequest {
	return FeedbackRequest{
		Section:     "writing",
		Text:        "My essay.",
		Criteria:    []string{"grammar", "vocabulary", "coherence", "task_achievement"},
		Description: "writing sample",
	}
}

func newTestClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: baseURL, Logger: testLogger()})
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	require.Error(t, err)
}

func TestGenerateFeedbackSuccess(t *testing.T) {
	content := `{"report": "Strong essay.", "scores": {"grammar": 7, "vocabulary": 6, "coherence": 8, "task_achievement": 7}}`
	server := chatServer(t, http.StatusOK, content)
	client := newTestClient(t, server.URL+"/v1")

	result, err := client.GenerateFeedback(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "Strong essay.", result.Report)
	require.Equal(t, 7, result.Scores["grammar"])
	require.Len(t, result.Scores, 4)
}

func TestGenerateFeedbackNormalizesCriterionNames(t *testing.T) {
	content := `{"report": "ok", "scores": {"Grammar": 7, "Vocabulary": 6, "Coherence": 8, "Task Achievement": 7}}`
	server := chatServer(t, http.StatusOK, content)
	client := newTestClient(t, server.URL+"/v1")

	result, err := client.GenerateFeedback(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, 7, result.Scores["task_achievement"])
}

func TestGenerateFeedbackProviderError(t *testing.T) {
	server := chatServer(t, http.StatusServiceUnavailable, "")
	client := newTestClient(t, server.URL+"/v1")

	_, err := client.GenerateFeedback(context.Background(), testRequest())
	require.Error(t, err)
}

func TestGenerateFeedbackMalformedPayload(t *testing.T) {
	server := chatServer(t, http.StatusOK, "not json at all")
	client := newTestClient(t, server.URL+"/v1")

	_, err := client.GenerateFeedback(context.Background(), testRequest())
	require.Error(t, err)
}

func TestGenerateFeedbackSchemaRejectsOutOfBandScores(t *testing.T) {
	content := `{"report": "ok", "scores": {"grammar": 12, "vocabulary": 6, "coherence": 8, "task_achievement": 7}}`
	server := chatServer(t, http.StatusOK, content)
	client := newTestClient(t, server.URL+"/v1")

	_, err := client.GenerateFeedback(context.Background(), testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema")
}

func TestGenerateFeedbackMissingCriterion(t *testing.T) {
	content := `{"report": "ok", "scores": {"grammar": 7}}`
	server := chatServer(t, http.StatusOK, content)
	client := newTestClient(t, server.URL+"/v1")

	_, err := client.GenerateFeedback(context.Background(), testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "vocabulary")
}

func TestParseFeedbackResponseRejectsEmptyReport(t *testing.T) {
	_, err := parseFeedbackResponse(`{"report": "", "scores": {"grammar": 5}}`, []string{"grammar"})
	require.Error(t, err)
}
