package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/academy-uk/exam-grader-api/internal/config"
	"github.com/academy-uk/exam-grader-api/internal/database"
	"github.com/academy-uk/exam-grader-api/internal/handler"
	"github.com/academy-uk/exam-grader-api/internal/middleware"
	"github.com/academy-uk/exam-grader-api/internal/router"
	"github.com/academy-uk/exam-grader-api/internal/service"
	"github.com/academy-uk/exam-grader-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Provider credentials are read once here; their absence switches the
	// evaluators into permanent local-fallback mode rather than failing.
	var generator ai.Generator
	var transcriber ai.Transcriber
	if cfg.AIEnabled() {
		client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:             cfg.OpenAIAPIKey,
			BaseURL:            cfg.OpenAIBaseURL,
			FeedbackModel:      cfg.FeedbackModel,
			TranscriptionModel: cfg.TranscriptionModel,
			Timeout:            cfg.EvaluationTimeout,
			Logger:             logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai client: %v", err)
		}
		generator = client
		transcriber = client
	} else {
		logger.Warn().Msg("no provider credential configured, running in local fallback mode")
	}

	redisClient := connectOptionalRedis(cfg.RedisURL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn := connectOptionalNATS(cfg.NATSURL, logger)
	if natsConn != nil {
		defer natsConn.Close()
	}

	var dispatcher service.ReportDispatcher
	if cfg.SMTPEnabled() {
		dispatcher, err = service.NewSMTPReportDispatcher(service.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			Sender:    cfg.ReportSender,
			Recipient: cfg.ReportRecipient,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create smtp dispatcher: %v", err)
		}
	} else {
		dispatcher = service.NewLogReportDispatcher(cfg.ReportRecipient, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	objectiveGrader := service.NewObjectiveGrader(cfg.AnswerKey)
	writingEvaluator := service.NewWritingEvaluator(generator, logger)
	speakingEvaluator := service.NewSpeakingEvaluator(transcriber, generator, cfg.AudioFetchTimeout, logger)
	gradingService := service.NewGradingService(objectiveGrader, writingEvaluator, speakingEvaluator, redisClient, natsConn, logger)
	reportService := service.NewReportService(dispatcher, cfg.AnswerKey, logger)

	examHandler := handler.NewExamHandler(gradingService, reportService, cfg.ReportRecipient, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{ExamHandler: examHandler})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// connectOptionalRedis enables duplicate-submission detection when a Redis
// URL is configured. Failure to connect disables dedupe rather than aborting
// startup.
func connectOptionalRedis(url string, logger zerolog.Logger) *redis.Client {
	if url == "" {
		return nil
	}

	client, err := database.ConnectRedis(url)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, duplicate detection disabled")
		return nil
	}

	return client
}

// connectOptionalNATS enables grading event publishing when a NATS URL is
// configured.
func connectOptionalNATS(url string, logger zerolog.Logger) *nats.Conn {
	if url == "" {
		return nil
	}

	conn, err := nats.Connect(url)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, grading events disabled")
		return nil
	}

	return conn
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
