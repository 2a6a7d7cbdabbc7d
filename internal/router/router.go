package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/acadgrade/backend/internal/config"
	"github.com/acadgrade/backend/internal/handler"
	"github.com/acadgrade/backend/internal/middleware"
	"github.com/acadgrade/backend/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	QuestionHandler   *handler.QuestionHandler
	SubmissionHandler *handler.SubmissionHandler
	GradesHandler     *handler.GradesHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application. Teacher
// and student surfaces live under separate role-gated groups.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teacher := api.Group("/teacher", jwtMiddleware, middleware.RequireRole("teacher"))
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterTeacher(teacher)
	}
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.RegisterTeacher(teacher)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.RegisterTeacher(teacher)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.RegisterTeacher(teacher)
	}

	student := api.Group("/student", jwtMiddleware, middleware.RequireRole("student"))
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterStudent(student)
	}
	if deps.GradesHandler != nil {
		deps.GradesHandler.RegisterStudent(student)
	}
	if deps.SubmissionHandler != nil {
		submit := student.Group("", middleware.RateLimit("student-submit", 10, time.Minute))
		deps.SubmissionHandler.RegisterStudent(submit)
	}
}
