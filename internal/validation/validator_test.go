package validation

import (
	"strings"
	"testing"

	"quiz-forge/internal/domain"
	"quiz-forge/internal/dto"
	"quiz-forge/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_GenerateQuizRequest(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		req     dto.GenerateQuizRequest
		code    domain.ErrorCode
		field   string
		isValid bool
	}{
		{"content only", dto.GenerateQuizRequest{Content: "Plants make sugar."}, "", "", true},
		{"topic only", dto.GenerateQuizRequest{Topic: "Photosynthesis", Count: 5}, "", "", true},
		{"neither content nor topic", dto.GenerateQuizRequest{Count: 5}, domain.CodeMissingField, "content", false},
		{"count too large", dto.GenerateQuizRequest{Content: "x", Count: 201}, domain.CodeOutOfRange, "count", false},
		{"negative count", dto.GenerateQuizRequest{Content: "x", Count: -1}, domain.CodeOutOfRange, "count", false},
		{"topic too long", dto.GenerateQuizRequest{Topic: strings.Repeat("t", 201)}, domain.CodeOutOfRange, "topic", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Struct(tt.req)
			if tt.isValid {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidator_OutOfRangeMessage(t *testing.T) {
	errs := NewValidator().Struct(dto.GenerateQuizRequest{Content: "x", Count: 500})
	require.Len(t, errs, 1)
	assert.Equal(t, "value must be between 0 and 200", errs[0].Message)
	assert.Equal(t, 500, errs[0].Value)
}

func TestValidator_GenerateFromSourcesRequest(t *testing.T) {
	v := NewValidator()

	assert.Empty(t, v.Struct(dto.GenerateFromSourcesRequest{}))
	assert.Empty(t, v.Struct(dto.GenerateFromSourcesRequest{SourceIDs: []string{util.NewULID(), util.NewULID()}}))

	errs := v.Struct(dto.GenerateFromSourcesRequest{SourceIDs: []string{util.NewULID(), "not-an-id"}})
	require.Len(t, errs, 1)
	assert.Equal(t, domain.CodeInvalidFormat, errs[0].Code)
	assert.Equal(t, "source_ids[1]", errs[0].Field)
	assert.Equal(t, "not-an-id", errs[0].Value)
}

func TestValidator_AddTextSourceRequest(t *testing.T) {
	v := NewValidator()

	assert.Empty(t, v.Struct(dto.AddTextSourceRequest{Title: "Notes", Content: "Cells divide."}))

	errs := v.Struct(dto.AddTextSourceRequest{Title: "Notes"})
	require.Len(t, errs, 1)
	assert.Equal(t, domain.CodeMissingField, errs[0].Code)
	assert.Equal(t, "content", errs[0].Field)
}

func TestValidator_ValidateSourceID(t *testing.T) {
	v := NewValidator()

	assert.Empty(t, v.ValidateSourceID(util.NewULID()))

	errs := v.ValidateSourceID("")
	require.Len(t, errs, 1)
	assert.Equal(t, domain.CodeMissingField, errs[0].Code)

	errs = v.ValidateSourceID("abc")
	require.Len(t, errs, 1)
	assert.Equal(t, domain.CodeInvalidFormat, errs[0].Code)
}
