package handler

import (
	"context"
	"time"

	"quiz-forge/internal/dto"
	"quiz-forge/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	ModeLLM           = "llm"
	ModeHeuristicOnly = "heuristic-only"

	pingTimeout = 2 * time.Second
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	providers []string
	cache     Pinger
}

// NewHealthHandler reports the provider chain in order. An empty chain means
// every question comes from fallback synthesis. cache may be nil.
func NewHealthHandler(providers []string, cache Pinger) *HealthHandler {
	if providers == nil {
		providers = []string{}
	}
	return &HealthHandler{providers: providers, cache: cache}
}

// Check godoc
// @Summary Service health
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	resp := dto.HealthResponse{Status: "ok", Providers: h.providers, Mode: ModeLLM}
	if len(h.providers) == 0 {
		resp.Mode = ModeHeuristicOnly
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
		defer cancel()
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			logger.Get().Warn("Cache health check failed", zap.Error(err))
			resp.Cache = "unavailable"
			resp.Status = "degraded"
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
	}
	return c.JSON(resp)
}
