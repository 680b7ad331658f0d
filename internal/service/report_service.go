package service

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/academy-uk/exam-grader-api/internal/models"
	"github.com/academy-uk/exam-grader-api/internal/observability"
)

// ReportDispatcher delivers a rendered report document to the fixed
// recipient configured at startup.
type ReportDispatcher interface {
	Dispatch(ctx context.Context, subject, htmlBody string) error
}

// ReportService renders a grading result to HTML and hands it to the
// dispatcher. Delivery failure is reported to the caller as a boolean-style
// outcome, never as a request failure.
type ReportService interface {
	Deliver(ctx context.Context, result models.GradingResult) bool
}

const reportTemplateText = `<html>
<head>
<style>
 body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
 .container { width: 80%; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
 h2 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
 .score-box { background-color: #ecf0f1; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
 .feedback-section { margin-top: 20px; padding: 15px; border: 1px solid #ccc; border-radius: 5px; white-space: pre-wrap; }
 .correct { color: green; font-weight: bold; }
 .incorrect { color: red; font-weight: bold; }
</style>
</head>
<body>
<div class="container">
 <h2>English Proficiency Exam Report</h2>
 <p><strong>Reference:</strong> {{.ReferenceID}}</p>
 <p><strong>Student Name:</strong> {{.StudentName}}</p>
 <p><strong>Student Email:</strong> {{.StudentEmail}}</p>
 <p><strong>Graded At:</strong> {{.GradedAt}}</p>

 <div class="score-box">
  <h3>Objective Sections Score (Listening &amp; Reading)</h3>
  <p><strong>Score:</strong> {{.Score}} / {{.Total}}</p>
 </div>

 <h3>Section 3: Writing Feedback</h3>
 <div class="feedback-section">{{.WritingFeedback}}</div>

 <h3>Section 4: Speaking Feedback</h3>
 <p><strong>Audio Link:</strong> <a href="{{.SpeakingLink}}">{{.SpeakingLink}}</a></p>
 <div class="feedback-section">{{.SpeakingFeedback}}</div>

 <h2>Objective Questions Breakdown</h2>
 <h3>Section 1: Listening</h3>
 <ul>
 {{range .Listening}}<li>{{.ID}}: <span class="{{if .Correct}}correct{{else}}incorrect{{end}}">{{if .Correct}}Correct{{else}}Incorrect{{end}}</span> - Answer: {{.Answer}}</li>
 {{end}}</ul>
 <h3>Section 2: Reading</h3>
 <ul>
 {{range .Reading}}<li>{{.ID}}: <span class="{{if .Correct}}correct{{else}}incorrect{{end}}">{{if .Correct}}Correct{{else}}Incorrect{{end}}</span> - Answer: {{.Answer}}</li>
 {{end}}</ul>

 <p style="margin-top: 30px; text-align: center; color: #7f8c8d;">Report generated by the Exam Grader service.</p>
</div>
</body>
</html>`

type reportQuestion struct {
	ID      string
	Answer  string
	Correct bool
}

type reportData struct {
	ReferenceID      string
	StudentName      string
	StudentEmail     string
	GradedAt         string
	Score            int
	Total            int
	WritingFeedback  template.HTML
	SpeakingFeedback template.HTML
	SpeakingLink     string
	Listening        []reportQuestion
	Reading          []reportQuestion
}

type reportService struct {
	tmpl       *template.Template
	sanitizer  *bluemonday.Policy
	dispatcher ReportDispatcher
	key        models.AnswerKey
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewReportService constructs the formatter plus dispatcher pair. The answer
// key fixes the ordering of the per-question breakdown.
func NewReportService(dispatcher ReportDispatcher, key models.AnswerKey, logger zerolog.Logger) ReportService {
	return &reportService{
		tmpl:       template.Must(template.New("report").Parse(reportTemplateText)),
		sanitizer:  bluemonday.UGCPolicy(),
		dispatcher: dispatcher,
		key:        key,
		logger:     logger.With().Str("component", "report_service").Logger(),
		tracer:     otel.Tracer("github.com/academy-uk/exam-grader-api/internal/service/report"),
	}
}

func (s *reportService) Deliver(ctx context.Context, result models.GradingResult) bool {
	ctx, span := s.tracer.Start(ctx, "report.deliver")
	span.SetAttributes(attribute.String("report.reference_id", result.ReferenceID))
	defer span.End()

	body, err := s.render(result)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to render report")
		span.RecordError(err)
		observability.ReportDispatches().WithLabelValues("render_error").Inc()
		return false
	}

	subject := fmt.Sprintf("Graded Exam Report for %s (%s)", result.StudentName, result.StudentEmail)
	if err := s.dispatcher.Dispatch(ctx, subject, body); err != nil {
		s.logger.Error().Err(err).Msg("failed to dispatch report")
		span.RecordError(err)
		observability.ReportDispatches().WithLabelValues("dispatch_error").Inc()
		return false
	}

	observability.ReportDispatches().WithLabelValues("sent").Inc()
	return true
}

// render produces the HTML document. Student-provided and model-generated
// text is sanitized before being marked safe for interpolation.
func (s *reportService) render(result models.GradingResult) (string, error) {
	data := reportData{
		ReferenceID:      result.ReferenceID,
		StudentName:      result.StudentName,
		StudentEmail:     result.StudentEmail,
		GradedAt:         result.GradedAt.Format("2006-01-02 15:04:05 MST"),
		Score:            result.Objective.Score,
		Total:            result.Objective.Total,
		WritingFeedback:  s.safeHTML(result.Writing.Document()),
		SpeakingFeedback: s.safeHTML(result.Speaking.Document()),
		SpeakingLink:     result.SpeakingLink,
		Listening:        orderedQuestions(s.key.Listening, result.Objective.Listening),
		Reading:          orderedQuestions(s.key.Reading, result.Objective.Reading),
	}

	var b strings.Builder
	if err := s.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}

	return b.String(), nil
}

func (s *reportService) safeHTML(text string) template.HTML {
	return template.HTML(s.sanitizer.Sanitize(text))
}

func orderedQuestions(key []models.AnswerKeyEntry, results map[string]models.QuestionResult) []reportQuestion {
	out := make([]reportQuestion, 0, len(key))
	for _, entry := range key {
		result := results[entry.ID]
		out = append(out, reportQuestion{ID: entry.ID, Answer: result.Answer, Correct: result.Correct})
	}

	return out
}
