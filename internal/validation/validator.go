package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"quiz-forge/internal/domain"
	"quiz-forge/internal/util"

	"github.com/go-playground/validator/v10"
)

// Validator checks request DTOs and reports problems as domain.ValidationErrors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("ulid", func(fl validator.FieldLevel) bool {
		return util.IsULID(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct validates a request DTO. It returns nil when the request is valid.
func (v *Validator) Struct(req interface{}) domain.ValidationErrors {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.ValidationErrors{{
			Code:    domain.CodeValidation,
			Field:   "request",
			Message: err.Error(),
		}}
	}

	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toDomain(fe))
	}
	return out
}

// ValidateSourceID checks a source id taken from the path.
func (v *Validator) ValidateSourceID(id string) domain.ValidationErrors {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("id")}
	}
	if !util.IsULID(id) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("id", id)}
	}
	return nil
}

func toDomain(fe validator.FieldError) domain.ValidationError {
	field := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, "[") {
		// keep the index for slice elements, e.g. source_ids[2]
		field = ns[strings.Index(ns, ".")+1:]
	}

	switch fe.Tag() {
	case "required", "required_without":
		return domain.NewMissingFieldError(field)
	case "gte", "lte", "min", "max":
		if fe.Kind() == reflect.Int {
			lo, hi := bounds(fe)
			return domain.NewOutOfRangeError(field, fe.Value(), lo, hi)
		}
		return domain.ValidationError{
			Code:    domain.CodeOutOfRange,
			Field:   field,
			Message: "length must not exceed " + fe.Param(),
		}
	default:
		return domain.NewInvalidFormatError(field, fe.Value())
	}
}

// bounds reports the range of the numeric request fields. Only count is numeric.
func bounds(fe validator.FieldError) (int, int) {
	p, _ := strconv.Atoi(fe.Param())
	switch fe.Tag() {
	case "gte", "min":
		return p, 200
	default:
		return 0, p
	}
}
