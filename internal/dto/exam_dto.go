package dto

import (
	"github.com/academy-uk/exam-grader-api/internal/models"
)

// ExamSubmissionRequest mirrors the exam form. Every field is optional; a
// blank answer is graded as incorrect and blank open-ended sections degrade
// to explanatory notices.
type ExamSubmissionRequest struct {
	StudentName  string `form:"student_name" validate:"max=200"`
	StudentEmail string `form:"student_email" validate:"omitempty,email"`
	Q1           string `form:"q1"`
	Q2           string `form:"q2"`
	Q3           string `form:"q3"`
	Q4           string `form:"q4"`
	Q5           string `form:"q5"`
	R1           string `form:"r1"`
	R2           string `form:"r2"`
	R3           string `form:"r3"`
	R4           string `form:"r4"`
	R5           string `form:"r5"`
	R6           string `form:"r6"`
	R7           string `form:"r7"`
	R8           string `form:"r8"`
	R9           string `form:"r9"`
	R10          string `form:"r10"`
	WritingText  string `form:"writing_answer"`
	SpeakingLink string `form:"speaking_link" validate:"max=2048"`
}

// ListeningAnswers returns the listening answers in paper order.
func (r ExamSubmissionRequest) ListeningAnswers() []string {
	return []string{r.Q1, r.Q2, r.Q3, r.Q4, r.Q5}
}

// ReadingAnswers returns the reading answers in paper order.
func (r ExamSubmissionRequest) ReadingAnswers() []string {
	return []string{r.R1, r.R2, r.R3, r.R4, r.R5, r.R6, r.R7, r.R8, r.R9, r.R10}
}

// ObjectiveResultsPayload is the objective portion of the response body.
type ObjectiveResultsPayload struct {
	Score            int                              `json:"score"`
	Total            int                              `json:"total"`
	ListeningResults map[string]models.QuestionResult `json:"listening_results"`
	ReadingResults   map[string]models.QuestionResult `json:"reading_results"`
}

// ExamResultsPayload is the full grading outcome returned to the caller.
type ExamResultsPayload struct {
	StudentName      string                  `json:"student_name"`
	StudentEmail     string                  `json:"student_email"`
	WritingFeedback  string                  `json:"writing_feedback"`
	SpeakingLink     string                  `json:"speaking_link"`
	SpeakingFeedback string                  `json:"speaking_feedback"`
	ObjectiveResults ObjectiveResultsPayload `json:"objective_results"`
}

// ExamSubmissionResponse is the JSON envelope for the submit-exam operation.
type ExamSubmissionResponse struct {
	Message string             `json:"message"`
	Results ExamResultsPayload `json:"results"`
}

// NewExamResultsPayload maps a grading result onto the response shape.
func NewExamResultsPayload(result models.GradingResult) ExamResultsPayload {
	return ExamResultsPayload{
		StudentName:      result.StudentName,
		StudentEmail:     result.StudentEmail,
		WritingFeedback:  result.Writing.Document(),
		SpeakingLink:     result.SpeakingLink,
		SpeakingFeedback: result.Speaking.Document(),
		ObjectiveResults: ObjectiveResultsPayload{
			Score:            result.Objective.Score,
			Total:            result.Objective.Total,
			ListeningResults: result.Objective.Listening,
			ReadingResults:   result.Objective.Reading,
		},
	}
}
