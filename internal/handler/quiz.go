package handler

import (
	"context"

	"quiz-forge/internal/domain"
	"quiz-forge/internal/dto"
	"quiz-forge/internal/logger"
	"quiz-forge/internal/middleware"
	"quiz-forge/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizGenerator runs one generation and reports how it went.
type QuizGenerator interface {
	GenerateDetailed(ctx context.Context, req domain.GenerationRequest) (*service.GenerationReport, error)
}

// QuizHandler handles quiz generation HTTP requests
type QuizHandler struct {
	generator QuizGenerator
	fast      QuizGenerator
	sources   SourceRegistry
}

// NewQuizHandler creates a new QuizHandler instance. fast may be nil, in which
// case fast requests use the regular generator.
func NewQuizHandler(generator, fast QuizGenerator, sources SourceRegistry) *QuizHandler {
	if fast == nil {
		fast = generator
	}
	return &QuizHandler{
		generator: generator,
		fast:      fast,
		sources:   sources,
	}
}

// GenerateQuiz godoc
// @Summary Generate questions from text
// @Description Generates multiple-choice questions about the given content. The first option of each question is the correct answer.
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body dto.GenerateQuizRequest true "Content and options"
// @Success 200 {object} dto.GenerateQuizResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /quiz/generate [post]
func (h *QuizHandler) GenerateQuiz(c *fiber.Ctx) error {
	req, ok := middleware.Body[dto.GenerateQuizRequest](c)
	if !ok {
		return domain.NewInvalidInputError("Invalid request body")
	}

	return h.generate(c, req.Fast, domain.GenerationRequest{
		Content:        req.Content,
		Topic:          req.Topic,
		RequestedCount: req.Count,
	})
}

// GenerateFromSources godoc
// @Summary Generate questions from registered sources
// @Description Combines the selected sources (all of them when source_ids is empty) and generates questions about them.
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body dto.GenerateFromSourcesRequest true "Source selection and options"
// @Success 200 {object} dto.GenerateQuizResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /quiz/generate-from-sources [post]
func (h *QuizHandler) GenerateFromSources(c *fiber.Ctx) error {
	req, ok := middleware.Body[dto.GenerateFromSourcesRequest](c)
	if !ok {
		return domain.NewInvalidInputError("Invalid request body")
	}

	content, err := h.sources.CombinedContent(c.UserContext(), req.SourceIDs)
	if err != nil {
		return err
	}

	return h.generate(c, req.Fast, domain.GenerationRequest{
		Content:        content,
		Topic:          req.Topic,
		RequestedCount: req.Count,
	})
}

func (h *QuizHandler) generate(c *fiber.Ctx, fast bool, req domain.GenerationRequest) error {
	generator := h.generator
	if fast {
		generator = h.fast
	}

	report, err := generator.GenerateDetailed(c.UserContext(), req)
	if err != nil {
		logger.Get().Error("Failed to generate quiz",
			zap.Error(err),
			zap.Int("requested", req.RequestedCount),
			zap.Bool("fast", fast),
		)
		return err
	}

	return c.JSON(dto.GenerateQuizResponse{
		Questions: dto.ToQuestionResponses(report.Questions),
		Count:     len(report.Questions),
		Meta: dto.GenerationMeta{
			RunID:        report.RunID,
			Requested:    report.Requested,
			Batches:      len(report.Batches),
			FromAI:       report.FromAI,
			FromFallback: report.FromFallback,
			ElapsedMs:    report.Elapsed.Milliseconds(),
		},
	})
}
