package ai

import "context"

// FeedbackRequest carries one block of student text and the rubric it is
// evaluated against.
type FeedbackRequest struct {
	Section     string
	Text        string
	Criteria    []string
	Description string
}

// FeedbackResult is the structured feedback returned by the model. Scores is
// keyed by criterion name with values on the 1-9 band scale.
type FeedbackResult struct {
	Report string         `json:"report"`
	Scores map[string]int `json:"scores"`
}

// Generator describes a model capable of producing rubric feedback for text.
type Generator interface {
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (FeedbackResult, error)
}

// Transcriber converts raw audio bytes into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}
