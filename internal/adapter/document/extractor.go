// Package document extracts plain text from uploaded files.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"quiz-forge/internal/domain"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrEmptyDocument is returned when a document yields no text.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// Extractor implements domain.TextExtractor for plain text and PDF uploads.
type Extractor struct {
	maxBytes int64
	logger   *zap.Logger
}

var _ domain.TextExtractor = (*Extractor)(nil)

// NewExtractor caps the extracted text at maxBytes; zero disables the cap.
func NewExtractor(maxBytes int64, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{maxBytes: maxBytes, logger: logger}
}

func (e *Extractor) ExtractText(ctx context.Context, kind domain.SourceKind, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch kind {
	case domain.SourceText:
		if !utf8.Valid(data) {
			return "", domain.NewUnsupportedDocumentError(string(kind), errors.New("text is not valid UTF-8"))
		}
		text = string(data)
	case domain.SourcePDF:
		text, err = e.pdfText(data)
		if err != nil {
			return "", domain.NewUnsupportedDocumentError(string(kind), err)
		}
	default:
		return "", domain.NewUnsupportedDocumentError(string(kind), fmt.Errorf("unknown document kind"))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewUnsupportedDocumentError(string(kind), ErrEmptyDocument)
	}
	if e.maxBytes > 0 && int64(len(text)) > e.maxBytes {
		text = truncateUTF8(text, int(e.maxBytes))
		e.logger.Warn("truncated extracted text", zap.Int64("max_bytes", e.maxBytes))
	}
	return text, nil
}

func (e *Extractor) pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	e.logger.Debug("extracted pdf text", zap.Int("pages", r.NumPage()), zap.Int("bytes", len(raw)))
	return string(raw), nil
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
