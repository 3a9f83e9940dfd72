package service

import (
	"context"
	"strings"
	"time"

	"quiz-forge/internal/analyzer"
	"quiz-forge/internal/domain"
	"quiz-forge/internal/util"

	"go.uber.org/zap"
)

const untitledSource = "Untitled document"

// SourceService registers uploaded documents and assembles them into generation input.
type SourceService struct {
	store     domain.SourceStore
	extractor domain.TextExtractor
	logger    *zap.Logger
	now       func() time.Time
}

func NewSourceService(store domain.SourceStore, extractor domain.TextExtractor, logger *zap.Logger) *SourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceService{store: store, extractor: extractor, logger: logger, now: time.Now}
}

func (s *SourceService) AddText(ctx context.Context, title, content string) (*domain.Source, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.NewInvalidInputError("content must not be empty")
	}
	return s.add(ctx, title, domain.SourceText, []byte(content))
}

func (s *SourceService) AddPDF(ctx context.Context, title string, data []byte) (*domain.Source, error) {
	if len(data) == 0 {
		return nil, domain.NewInvalidInputError("uploaded file is empty")
	}
	return s.add(ctx, title, domain.SourcePDF, data)
}

func (s *SourceService) add(ctx context.Context, title string, kind domain.SourceKind, data []byte) (*domain.Source, error) {
	text, err := s.extractor.ExtractText(ctx, kind, data)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = untitledSource
	}
	source := &domain.Source{
		ID:        util.NewULID(),
		Title:     title,
		Kind:      kind,
		Content:   text,
		WordCount: analyzer.WordCount(text),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, source); err != nil {
		return nil, err
	}

	s.logger.Info("source added",
		zap.String("source_id", source.ID),
		zap.String("kind", string(kind)),
		zap.Int("word_count", source.WordCount),
	)
	return source, nil
}

func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	return s.store.Get(ctx, id)
}

func (s *SourceService) List(ctx context.Context) ([]*domain.Source, error) {
	return s.store.List(ctx)
}

func (s *SourceService) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("source removed", zap.String("source_id", id))
	return nil
}

// CombinedContent joins the given sources, or every source when ids is empty, in
// the order requested.
func (s *SourceService) CombinedContent(ctx context.Context, ids []string) (string, error) {
	var sources []*domain.Source
	if len(ids) == 0 {
		all, err := s.store.List(ctx)
		if err != nil {
			return "", err
		}
		sources = all
	} else {
		for _, id := range ids {
			source, err := s.store.Get(ctx, id)
			if err != nil {
				return "", err
			}
			sources = append(sources, source)
		}
	}

	if len(sources) == 0 {
		return "", domain.NewInvalidInputError("no sources available")
	}

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, source.Content)
	}
	return strings.Join(parts, domain.SourceSeparator), nil
}
