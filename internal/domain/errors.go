package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"

	// Generation specific errors
	CodeLLMServiceError     ErrorCode = "LLM_SERVICE_ERROR"
	CodeProvidersExhausted  ErrorCode = "PROVIDERS_EXHAUSTED"
	CodeConfiguration       ErrorCode = "CONFIGURATION_ERROR"
	CodeSourceNotFound      ErrorCode = "SOURCE_NOT_FOUND"
	CodeUnsupportedDocument ErrorCode = "UNSUPPORTED_DOCUMENT"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Context map[string]interface{} `json:"context,omitempty"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
		Context: e.Context,
	})
}

// WithContext attaches a key/value pair that is exposed to API clients.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewLLMServiceError(cause error) *DomainError {
	return NewError(CodeLLMServiceError, "Failed to process with LLM service", cause)
}

func NewConfigurationError(message string) *DomainError {
	return NewError(CodeConfiguration, message, nil)
}

func NewSourceNotFoundError(sourceID string) *DomainError {
	return NewError(CodeSourceNotFound, fmt.Sprintf("Source not found with ID: %s", sourceID), nil).
		WithContext("source_id", sourceID)
}

func NewUnsupportedDocumentError(kind string, cause error) *DomainError {
	return NewError(CodeUnsupportedDocument, fmt.Sprintf("Unsupported or unreadable %s document", kind), cause)
}

// NewProvidersExhaustedError reports that every configured provider failed for one call.
// The individual provider errors are joined into the cause.
func NewProvidersExhaustedError(attempts []ProviderAttempt) *DomainError {
	errs := make([]error, 0, len(attempts))
	names := make([]string, 0, len(attempts))
	for _, a := range attempts {
		names = append(names, a.Provider)
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Provider, a.Err))
		}
	}
	return NewError(CodeProvidersExhausted, "All configured providers failed", errors.Join(errs...)).
		WithContext("providers", strings.Join(names, ","))
}

// IsProvidersExhausted reports whether err signals that no provider produced usable text.
func IsProvidersExhausted(err error) bool {
	return hasCode(err, CodeProvidersExhausted)
}

// IsConfigurationError reports whether err is a hard configuration failure.
func IsConfigurationError(err error) bool {
	return hasCode(err, CodeConfiguration)
}

func IsSourceNotFound(err error) bool {
	return hasCode(err, CodeSourceNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ValidationError describes a single invalid request field.
type ValidationError struct {
	Code    ErrorCode   `json:"code"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a list of field errors returned together.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ve := range e {
		msgs = append(msgs, ve.Error())
	}
	return strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Code: CodeMissingField, Field: field, Message: "field is required"}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{Code: CodeInvalidFormat, Field: field, Message: "field has an invalid format", Value: value}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{
		Code:    CodeOutOfRange,
		Field:   field,
		Message: fmt.Sprintf("value must be between %d and %d", min, max),
		Value:   value,
	}
}
