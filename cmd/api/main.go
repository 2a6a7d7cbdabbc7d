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
	"github.com/rs/zerolog"

	"github.com/acadgrade/backend/internal/config"
	"github.com/acadgrade/backend/internal/database"
	"github.com/acadgrade/backend/internal/handler"
	"github.com/acadgrade/backend/internal/middleware"
	"github.com/acadgrade/backend/internal/models"
	"github.com/acadgrade/backend/internal/repository"
	"github.com/acadgrade/backend/internal/router"
	"github.com/acadgrade/backend/internal/service"
	"github.com/acadgrade/backend/pkg/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Teacher{},
		&models.Student{},
		&models.Course{},
		&models.Question{},
		&models.Assignment{},
		&models.Submission{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, grade report caching disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var publisher notify.Publisher
	if cfg.NATSURL != "" {
		conn, err := notify.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, submission notifications disabled")
		} else {
			defer conn.Close()
			publisher = notify.NewNATSPublisher(conn, cfg.NATSSubject, logger)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, activityService, publisher, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, questionRepo, studentRepo, submissionRepo, validate, logger)
	questionService := service.NewQuestionService(questionRepo, validate, logger)
	gradesService := service.NewGradesService(studentRepo, assignmentRepo, submissionRepo, redisClient, cfg.GradeCacheTTL, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, gradesService, logger)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	questionHandler := handler.NewQuestionHandler(questionService, logger)
	gradesHandler := handler.NewGradesHandler(gradesService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		QuestionHandler:   questionHandler,
		SubmissionHandler: submissionHandler,
		GradesHandler:     gradesHandler,
		ActivityHandler:   activityHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
