package middleware

import (
	"quiz-forge/internal/domain"
	"quiz-forge/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	// LocalSourceID holds the validated :id path parameter.
	LocalSourceID = "validated_source_id"
	// LocalBody holds the parsed and validated request body.
	LocalBody = "validated_body"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateSourceIDParam validates the :id path parameter of source routes.
func (vm *ValidationMiddleware) ValidateSourceIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if errs := vm.validator.ValidateSourceID(id); len(errs) > 0 {
			return errs // handled by ErrorHandler
		}
		c.Locals(LocalSourceID, id)
		return c.Next()
	}
}

// ValidateBody parses the JSON body into T, validates it and stores a *T under LocalBody.
func ValidateBody[T any](vm *ValidationMiddleware) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.BodyParser(req); err != nil {
			return domain.NewInvalidInputError("Invalid request body")
		}
		if errs := vm.validator.Struct(req); len(errs) > 0 {
			return errs
		}
		c.Locals(LocalBody, req)
		return c.Next()
	}
}

// Body returns the request stored by ValidateBody.
func Body[T any](c *fiber.Ctx) (*T, bool) {
	req, ok := c.Locals(LocalBody).(*T)
	return req, ok
}
