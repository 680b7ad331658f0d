package service

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/academy-uk/exam-grader-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testAnswerKey() models.AnswerKey {
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

func perfectListening() []string {
	return []string{"Smith", "555-1234", "Toothache", "Tuesday", "10:00"}
}

func perfectReading() []string {
	return []string{"B", "B", "B", "B", "B", "accessible", "weight", "injuries", "stress", "natural"}
}
