package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/academy-uk/exam-grader-api/internal/models"
	"github.com/academy-uk/exam-grader-api/pkg/ai"
)

type transcriberStub struct {
	calls      int
	transcript string
	err        error
	filename   string
}

func (s *transcriberStub) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	s.calls++
	s.filename = filename
	return s.transcript, s.err
}

// wavBytes is a minimal RIFF/WAVE header so mimetype sniffing sees audio.
func wavBytes() []byte {
	return []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00")
}

func audioServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSpeakingEvaluatorBlankLink(t *testing.T) {
	transcriber := &transcriberStub{}
	generator := &generatorStub{}
	evaluator := NewSpeakingEvaluator(transcriber, generator, time.Second, testLogger())

	feedback := evaluator.Evaluate(context.Background(), "   ")

	require.Equal(t, models.FeedbackSourceUnavailable, feedback.Source)
	require.Equal(t, "missing input", feedback.Reason)
	require.Empty(t, feedback.Scores)
	require.Zero(t, transcriber.calls)
	require.Zero(t, generator.calls)
}

func TestSpeakingEvaluatorFetchNotFound(t *testing.T) {
	server := audioServer(t, http.StatusNotFound, nil)
	transcriber := &transcriberStub{}
	evaluator := NewSpeakingEvaluator(transcriber, &generatorStub{}, time.Second, testLogger())

	feedback := evaluator.Evaluate(context.Background(), server.URL+"/missing.mp3")

	require.Equal(t, models.FeedbackSourceUnavailable, feedback.Source)
	require.Equal(t, "audio fetch failed", feedback.Reason)
	require.Contains(t, feedback.Text, server.URL)
	require.Contains(t, feedback.Text, "status 404")
	require.Contains(t, feedback.Text, "manually")
	require.Zero(t, transcriber.calls)
}

func TestSpeakingEvaluatorNonAudioPayload(t *testing.T) {
	server := audioServer(t, http.StatusOK, []byte("<html><body>not audio</body></html>"))
	transcriber := &transcriberStub{}
	evaluator := NewSpeakingEvaluator(transcriber, &generatorStub{}, time.Second, testLogger())

	feedback := evaluator.Evaluate(context.Background(), server.URL)

	require.Equal(t, models.FeedbackSourceUnavailable, feedback.Source)
	require.Equal(t, "audio fetch failed", feedback.Reason)
	require.Contains(t, feedback.Text, "not audio")
	require.Zero(t, transcriber.calls)
}

func TestSpeakingEvaluatorTranscriptionFailure(t *testing.T) {
	server := audioServer(t, http.StatusOK, wavBytes())
	transcriber := &transcriberStub{err: errors.New("provider exploded")}
	generator := &generatorStub{}
	evaluator := NewSpeakingEvaluator(transcriber, generator, time.Second, testLogger())

	feedback := evaluator.Evaluate(context.Background(), server.URL)

	require.Equal(t, models.FeedbackSourceUnavailable, feedback.Source)
	require.Equal(t, "transcription failed", feedback.Reason)
	require.Equal(t, 1, transcriber.calls)
	require.Zero(t, generator.calls)
}

func TestSpeakingEvaluatorNoTranscriberConfigured(t *testing.T) {
	server := audioServer(t, http.StatusOK, wavBytes())
	evaluator := NewSpeakingEvaluator(nil, nil, time.Second, testLogger())

	feedback := evaluator.Evaluate(context.Background(), server.URL)

	require.Equal(t, models.FeedbackSourceUnavailable, feedback.Source)
	require.Equal(t, "transcription failed", feedback.Reason)
	require.Contains(t, feedback.Text, "not configured")
}

func TestSpeakingEvaluatorFeedbackGenerationFailure(t *testing.T) {
	server := audioServer(t, http.StatusOK, wavBytes())
	transcriber := &transcriberStub{transcript: "I enjoy walking every day."}
	generator := &generatorStub{err: errors.New("404 model unavailable")}
	evaluator := NewSpeakingEvaluator(transcriber, generator, time.Second, testLogger())

	feedback := evaluator.Evaluate(context.Background(), server.URL)

	require.Equal(t, models.FeedbackSourceUnavailable, feedback.Source)
	require.Equal(t, "feedback generation failed", feedback.Reason)
	require.Equal(t, 1, generator.calls)
}

func TestSpeakingEvaluatorSuccess(t *testing.T) {
	server := audioServer(t, http.StatusOK, wavBytes())
	transcriber := &transcriberStub{transcript: "I enjoy walking every day."}
	generator := &generatorStub{
		result: ai.FeedbackResult{
			Report: "Fluent and natural delivery.",
			Scores: map[string]int{"fluency": 8, "pronunciation": 7, "lexical_resource": 6, "grammatical_accuracy": 7},
		},
	}
	evaluator := NewSpeakingEvaluator(transcriber, generator, time.Second, testLogger())

	feedback := evaluator.Evaluate(context.Background(), server.URL)

	require.Equal(t, models.FeedbackSourceModel, feedback.Source)
	require.Contains(t, feedback.Text, "I enjoy walking every day.")
	require.Contains(t, feedback.Text, "Fluent and natural delivery.")
	require.Len(t, feedback.Scores, 4)
	require.Equal(t, "speaking.wav", transcriber.filename)
}
