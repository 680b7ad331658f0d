package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/academy-uk/exam-grader-api/internal/dto"
	"github.com/academy-uk/exam-grader-api/internal/models"
	"github.com/academy-uk/exam-grader-api/internal/service"
	"github.com/academy-uk/exam-grader-api/internal/utils"
)

// ExamHandler serves the submit-exam endpoint.
type ExamHandler struct {
	grading   service.GradingService
	reports   service.ReportService
	recipient string
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExamHandler builds an exam handler instance.
func NewExamHandler(grading service.GradingService, reports service.ReportService, recipient string, validator *validator.Validate, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		grading:   grading,
		reports:   reports,
		recipient: recipient,
		validator: validator,
		logger:    logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches the routes to the provided router.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Post("/submit_exam", h.submit)
}

func (h *ExamHandler) submit(c *fiber.Ctx) error {
	var payload dto.ExamSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form body")
	}

	if err := h.validator.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
		}
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission")
	}

	submission := models.Submission{
		ReferenceID:      uuid.New().String(),
		StudentName:      payload.StudentName,
		StudentEmail:     payload.StudentEmail,
		ListeningAnswers: payload.ListeningAnswers(),
		ReadingAnswers:   payload.ReadingAnswers(),
		WritingText:      payload.WritingText,
		SpeakingLink:     payload.SpeakingLink,
	}

	result, err := h.grading.Grade(c.Context(), submission)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateSubmission) {
			return utils.SendError(c, fiber.StatusConflict, "this exam submission was already received")
		}
		h.logger.Error().Err(err).Msg("grading failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	// Delivery failure softens the message; the graded result is still
	// returned to the caller.
	message := fmt.Sprintf("Exam submission received, graded, and detailed report sent to %s.", h.recipient)
	if !h.reports.Deliver(c.Context(), result) {
		message = "Exam submission received and graded, but there was an error sending the email report."
	}

	return c.Status(fiber.StatusOK).JSON(dto.ExamSubmissionResponse{
		Message: message,
		Results: dto.NewExamResultsPayload(result),
	})
}
