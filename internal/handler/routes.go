package handler

import (
	"quiz-forge/internal/dto"
	"quiz-forge/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the health check on app and everything else under /api.
func RegisterRoutes(app *fiber.App, quiz *QuizHandler, sources *SourceHandler, health *HealthHandler) {
	vm := middleware.NewValidationMiddleware()

	app.Get("/health", health.Check)

	api := app.Group("/api")

	api.Post("/quiz/generate", middleware.ValidateBody[dto.GenerateQuizRequest](vm), quiz.GenerateQuiz)
	api.Post("/quiz/generate-from-sources", middleware.ValidateBody[dto.GenerateFromSourcesRequest](vm), quiz.GenerateFromSources)

	api.Post("/sources/text", middleware.ValidateBody[dto.AddTextSourceRequest](vm), sources.AddText)
	api.Post("/sources/pdf", sources.AddPDF)
	api.Get("/sources", sources.List)
	api.Get("/sources/:id", vm.ValidateSourceIDParam(), sources.Get)
	api.Delete("/sources/:id", vm.ValidateSourceIDParam(), sources.Delete)
}
