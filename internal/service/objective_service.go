package service

import (
	"strings"

	"github.com/academy-uk/exam-grader-api/internal/models"
)

// ObjectiveGrader scores the listening and reading sections against the
// answer key. It performs no I/O and is deterministic: identical inputs
// always yield an identical result.
type ObjectiveGrader interface {
	Grade(listening, reading []string) models.ObjectiveResult
}

type objectiveGrader struct {
	key models.AnswerKey
}

// NewObjectiveGrader constructs a grader bound to the process-wide answer key.
func NewObjectiveGrader(key models.AnswerKey) ObjectiveGrader {
	return &objectiveGrader{key: key}
}

// Grade compares each submitted answer positionally against the key. Answers
// are trimmed and compared case-insensitively; an absent or empty answer is
// incorrect, never an error.
func (g *objectiveGrader) Grade(listening, reading []string) models.ObjectiveResult {
	result := models.ObjectiveResult{
		Total:     g.key.Total(),
		Listening: make(map[string]models.QuestionResult, len(g.key.Listening)),
		Reading:   make(map[string]models.QuestionResult, len(g.key.Reading)),
	}

	result.Score += gradeSection(g.key.Listening, listening, result.Listening)
	result.Score += gradeSection(g.key.Reading, reading, result.Reading)

	return result
}

func gradeSection(key []models.AnswerKeyEntry, answers []string, out map[string]models.QuestionResult) int {
	correct := 0
	for i, entry := range key {
		answer := ""
		if i < len(answers) {
			answer = strings.TrimSpace(answers[i])
		}

		isCorrect := answer != "" && strings.EqualFold(answer, entry.Expected)
		out[entry.ID] = models.QuestionResult{Answer: answer, Correct: isCorrect}
		if isCorrect {
			correct++
		}
	}

	return correct
}
