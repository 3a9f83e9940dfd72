package handler

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"quiz-forge/internal/domain"
	"quiz-forge/internal/dto"
	"quiz-forge/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SourceRegistry stores uploaded documents for later generation.
type SourceRegistry interface {
	AddText(ctx context.Context, title, content string) (*domain.Source, error)
	AddPDF(ctx context.Context, title string, data []byte) (*domain.Source, error)
	Get(ctx context.Context, id string) (*domain.Source, error)
	List(ctx context.Context) ([]*domain.Source, error)
	Remove(ctx context.Context, id string) error
	CombinedContent(ctx context.Context, ids []string) (string, error)
}

type SourceHandler struct {
	sources SourceRegistry
}

func NewSourceHandler(sources SourceRegistry) *SourceHandler {
	return &SourceHandler{sources: sources}
}

// AddText godoc
// @Summary Register pasted text as a source
// @Tags sources
// @Accept json
// @Produce json
// @Param request body dto.AddTextSourceRequest true "Title and text"
// @Success 201 {object} dto.SourceResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /sources/text [post]
func (h *SourceHandler) AddText(c *fiber.Ctx) error {
	req, ok := middleware.Body[dto.AddTextSourceRequest](c)
	if !ok {
		return domain.NewInvalidInputError("Invalid request body")
	}

	source, err := h.sources.AddText(c.UserContext(), req.Title, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToSourceResponse(source, false))
}

// AddPDF godoc
// @Summary Upload a PDF as a source
// @Tags sources
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF document"
// @Param title formData string false "Title, defaults to the file name"
// @Success 201 {object} dto.SourceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /sources/pdf [post]
func (h *SourceHandler) AddPDF(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return domain.NewInvalidInputError("multipart field 'file' is required")
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") &&
		header.Header.Get(fiber.HeaderContentType) != "application/pdf" {
		return domain.NewUnsupportedDocumentError(filepath.Ext(header.Filename), nil)
	}

	f, err := header.Open()
	if err != nil {
		return domain.NewInternalError("failed to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.NewInternalError("failed to read upload", err)
	}

	title := c.FormValue("title")
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	source, err := h.sources.AddPDF(c.UserContext(), title, data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToSourceResponse(source, false))
}

// List godoc
// @Summary List registered sources
// @Tags sources
// @Produce json
// @Success 200 {object} dto.SourceListResponse
// @Router /sources [get]
func (h *SourceHandler) List(c *fiber.Ctx) error {
	sources, err := h.sources.List(c.UserContext())
	if err != nil {
		return err
	}

	resp := dto.SourceListResponse{Sources: make([]dto.SourceResponse, 0, len(sources))}
	for _, s := range sources {
		resp.Sources = append(resp.Sources, dto.ToSourceResponse(s, false))
	}
	resp.Count = len(resp.Sources)
	return c.JSON(resp)
}

// Get godoc
// @Summary Get one source with its full text
// @Tags sources
// @Produce json
// @Param id path string true "Source ID"
// @Success 200 {object} dto.SourceResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /sources/{id} [get]
func (h *SourceHandler) Get(c *fiber.Ctx) error {
	id, _ := c.Locals(middleware.LocalSourceID).(string)
	source, err := h.sources.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.ToSourceResponse(source, true))
}

// Delete godoc
// @Summary Remove a source
// @Tags sources
// @Param id path string true "Source ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Router /sources/{id} [delete]
func (h *SourceHandler) Delete(c *fiber.Ctx) error {
	id, _ := c.Locals(middleware.LocalSourceID).(string)
	if err := h.sources.Remove(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
