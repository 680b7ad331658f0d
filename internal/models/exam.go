package models

import (
	"fmt"
	"strings"
	"time"
)

// AnswerKeyEntry pairs a question identifier with its expected answer.
type AnswerKeyEntry struct {
	ID       string
	Expected string
}

// AnswerKey holds the canonical answers for the objective sections, in paper order.
// It is built once at startup and never mutated.
type AnswerKey struct {
	Listening []AnswerKeyEntry
	Reading   []AnswerKeyEntry
}

// Total returns the number of objective questions covered by the key.
func (k AnswerKey) Total() int {
	return len(k.Listening) + len(k.Reading)
}

// Submission is one student's exam as received from the form. All answer
// fields are optional; read-only after construction.
type Submission struct {
	ReferenceID      string
	StudentName      string
	StudentEmail     string
	ListeningAnswers []string
	ReadingAnswers   []string
	WritingText      string
	SpeakingLink     string
}

// QuestionResult records the normalized answer and correctness for one question.
type QuestionResult struct {
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
}

// ObjectiveResult is the deterministic outcome of the listening and reading sections.
type ObjectiveResult struct {
	Score     int
	Total     int
	Listening map[string]QuestionResult
	Reading   map[string]QuestionResult
}

// FeedbackSource identifies which path produced a NarrativeFeedback.
type FeedbackSource string

const (
	// FeedbackSourceModel marks feedback generated by the external model.
	FeedbackSourceModel FeedbackSource = "model"
	// FeedbackSourceHeuristic marks the deterministic local fallback.
	FeedbackSourceHeuristic FeedbackSource = "heuristic"
	// FeedbackSourceUnavailable marks a degraded notice with no scores.
	FeedbackSourceUnavailable FeedbackSource = "unavailable"
)

// CriterionScore is a 1-9 rubric rating for a single criterion.
type CriterionScore struct {
	Criterion string
	Score     int
}

// NarrativeFeedback is the qualitative outcome for one open-ended section.
// Scores is empty when the feedback is a degraded notice.
type NarrativeFeedback struct {
	Text   string
	Scores []CriterionScore
	Source FeedbackSource
	Reason string
}

// Document renders the feedback as a single block of text, appending the
// rubric scores when present. This is the form embedded in the JSON response
// and the emailed report.
func (f NarrativeFeedback) Document() string {
	if len(f.Scores) == 0 {
		return f.Text
	}

	var b strings.Builder
	b.WriteString(f.Text)
	b.WriteString("\n\nRubric scores:\n")
	sum := 0
	for _, s := range f.Scores {
		fmt.Fprintf(&b, "- %s: %d/9\n", s.Criterion, s.Score)
		sum += s.Score
	}
	fmt.Fprintf(&b, "Average: %.1f/9", float64(sum)/float64(len(f.Scores)))
	return b.String()
}

// GradingResult aggregates every section outcome for one submission.
// Immutable once produced; this is the unit handed to formatting and dispatch.
type GradingResult struct {
	ReferenceID  string
	StudentName  string
	StudentEmail string
	Objective    ObjectiveResult
	Writing      NarrativeFeedback
	Speaking     NarrativeFeedback
	SpeakingLink string
	GradedAt     time.Time
}
