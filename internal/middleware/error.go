package middleware

import (
	"errors"
	"net/http"

	"quiz-forge/internal/domain"
	"quiz-forge/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse lists every invalid field of a request.
type ValidationErrorResponse struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Status  int                      `json:"status"`
	Errors  []domain.ValidationError `json:"errors"`
}

// ErrorHandler is the app-wide fiber error handler. Handlers return errors and
// this turns them into JSON bodies with a status derived from the domain code.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			validationErrs domain.ValidationErrors
			domainErr      *domain.DomainError
			fiberErr       *fiber.Error
		)

		switch {
		case errors.As(err, &validationErrs):
			return handleValidation(c, validationErrs)
		case errors.As(err, &domainErr):
			return handleDomain(c, domainErr)
		case errors.As(err, &fiberErr):
			logger.Get().Warn("Fiber error occurred",
				zap.String("path", c.Path()),
				zap.Int("code", fiberErr.Code),
				zap.String("message", fiberErr.Message),
			)
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Code:    "HTTP_ERROR",
				Message: fiberErr.Message,
				Status:  fiberErr.Code,
			})
		}

		logger.Get().Error("Unknown error occurred",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    string(domain.CodeInternal),
			Message: "Internal server error",
			Status:  http.StatusInternalServerError,
		})
	}
}

func handleValidation(c *fiber.Ctx, errs domain.ValidationErrors) error {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	logger.Get().Warn("Validation errors occurred",
		zap.String("path", c.Path()),
		zap.Strings("fields", fields),
	)
	return c.Status(http.StatusBadRequest).JSON(ValidationErrorResponse{
		Code:    string(domain.CodeValidation),
		Message: "Request validation failed",
		Status:  http.StatusBadRequest,
		Errors:  errs,
	})
}

func handleDomain(c *fiber.Ctx, err *domain.DomainError) error {
	status := mapDomainErrorToHTTPStatus(err)

	log := logger.Get().Warn
	if status >= http.StatusInternalServerError {
		log = logger.Get().Error
	}
	log("Domain error occurred",
		zap.String("path", c.Path()),
		zap.String("code", string(err.Code)),
		zap.String("message", err.Message),
		zap.Int("status", status),
		zap.Error(err.Cause),
	)

	resp := ErrorResponse{
		Code:    string(err.Code),
		Message: err.Message,
		Status:  status,
	}
	if len(err.Context) > 0 {
		resp.Details = err.Context
	}
	return c.Status(status).JSON(resp)
}

// mapDomainErrorToHTTPStatus maps domain errors to HTTP status codes
func mapDomainErrorToHTTPStatus(err *domain.DomainError) int {
	switch err.Code {
	case domain.CodeNotFound, domain.CodeSourceNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidInput, domain.CodeValidation, domain.CodeMissingField,
		domain.CodeInvalidFormat, domain.CodeOutOfRange:
		return http.StatusBadRequest
	case domain.CodeUnsupportedDocument:
		return http.StatusUnprocessableEntity
	case domain.CodeLLMServiceError, domain.CodeProvidersExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
