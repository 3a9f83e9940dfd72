package dto

import (
	"time"

	"quiz-forge/internal/domain"
)

// GenerateQuizRequest asks for questions about inline content.
type GenerateQuizRequest struct {
	Content string `json:"content" validate:"required_without=Topic,max=2000000"`
	Topic   string `json:"topic,omitempty" validate:"max=200"`
	Count   int    `json:"count,omitempty" validate:"gte=0,lte=200"`
	Fast    bool   `json:"fast,omitempty"`
}

// GenerateFromSourcesRequest asks for questions about registered sources.
// An empty SourceIDs means every source.
type GenerateFromSourcesRequest struct {
	SourceIDs []string `json:"source_ids,omitempty" validate:"omitempty,max=50,dive,ulid"`
	Topic     string   `json:"topic,omitempty" validate:"max=200"`
	Count     int      `json:"count,omitempty" validate:"gte=0,lte=200"`
	Fast      bool     `json:"fast,omitempty"`
}

// QuestionResponse is one multiple-choice question; the first option is correct.
type QuestionResponse struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// GenerationMeta explains where the questions came from.
type GenerationMeta struct {
	RunID        string `json:"run_id"`
	Requested    int    `json:"requested"`
	Batches      int    `json:"batches"`
	FromAI       int    `json:"from_ai"`
	FromFallback int    `json:"from_fallback"`
	ElapsedMs    int64  `json:"elapsed_ms"`
}

type GenerateQuizResponse struct {
	Questions []QuestionResponse `json:"questions"`
	Count     int                `json:"count"`
	Meta      GenerationMeta     `json:"meta"`
}

func ToQuestionResponses(qs []domain.Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(qs))
	for _, q := range qs {
		out = append(out, QuestionResponse{ID: q.ID, Question: q.Text, Options: q.Options})
	}
	return out
}

// AddTextSourceRequest registers pasted text as a source.
type AddTextSourceRequest struct {
	Title   string `json:"title,omitempty" validate:"max=200"`
	Content string `json:"content" validate:"required,max=2000000"`
}

// SourceResponse describes a source. Content is only filled for single-source lookups.
type SourceResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
	Preview   string    `json:"preview,omitempty"`
	Content   string    `json:"content,omitempty"`
}

type SourceListResponse struct {
	Sources []SourceResponse `json:"sources"`
	Count   int              `json:"count"`
}

const previewRunes = 200

func ToSourceResponse(s *domain.Source, withContent bool) SourceResponse {
	resp := SourceResponse{
		ID:        s.ID,
		Title:     s.Title,
		Kind:      string(s.Kind),
		WordCount: s.WordCount,
		CreatedAt: s.CreatedAt,
	}
	if withContent {
		resp.Content = s.Content
		return resp
	}
	if runes := []rune(s.Content); len(runes) > previewRunes {
		resp.Preview = string(runes[:previewRunes]) + "..."
	} else {
		resp.Preview = s.Content
	}
	return resp
}

type HealthResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
	Mode      string   `json:"mode"`
	Cache     string   `json:"cache,omitempty"`
}
