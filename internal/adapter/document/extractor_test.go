package document

import (
	"context"
	"errors"
	"testing"

	"quiz-forge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_Text(t *testing.T) {
	e := NewExtractor(0, nil)
	text, err := e.ExtractText(context.Background(), domain.SourceText, []byte("  Cells divide by mitosis.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Cells divide by mitosis.", text)
}

func TestExtractText_Errors(t *testing.T) {
	e := NewExtractor(0, nil)
	tests := []struct {
		name string
		kind domain.SourceKind
		data []byte
	}{
		{"empty text", domain.SourceText, []byte("   \n\t")},
		{"invalid utf8", domain.SourceText, []byte{0xff, 0xfe, 0xfd}},
		{"not a pdf", domain.SourcePDF, []byte("plain words, not a PDF")},
		{"unknown kind", domain.SourceKind("docx"), []byte("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ExtractText(context.Background(), tt.kind, tt.data)
			require.Error(t, err)
			var de *domain.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, domain.CodeUnsupportedDocument, de.Code)
		})
	}
}

func TestExtractText_Truncates(t *testing.T) {
	e := NewExtractor(5, nil)
	text, err := e.ExtractText(context.Background(), domain.SourceText, []byte("héllo world"))
	require.NoError(t, err)
	assert.Equal(t, "héll", text)
}

func TestExtractText_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExtractor(0, nil).ExtractText(ctx, domain.SourceText, []byte("text"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "abc", truncateUTF8("abc", 10))
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "", truncateUTF8("é", 1))
}
