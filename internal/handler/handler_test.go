package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-forge/internal/domain"
	"quiz-forge/internal/dto"
	"quiz-forge/internal/handler"
	"quiz-forge/internal/middleware"
	"quiz-forge/internal/service"
	"quiz-forge/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Manual Mocks ---

type MockQuizGenerator struct {
	GenerateDetailedFunc func(ctx context.Context, req domain.GenerationRequest) (*service.GenerationReport, error)
}

func (m *MockQuizGenerator) GenerateDetailed(ctx context.Context, req domain.GenerationRequest) (*service.GenerationReport, error) {
	if m.GenerateDetailedFunc != nil {
		return m.GenerateDetailedFunc(ctx, req)
	}
	panic("MockQuizGenerator.GenerateDetailedFunc not implemented")
}

type MockSourceRegistry struct {
	AddTextFunc         func(ctx context.Context, title, content string) (*domain.Source, error)
	AddPDFFunc          func(ctx context.Context, title string, data []byte) (*domain.Source, error)
	GetFunc             func(ctx context.Context, id string) (*domain.Source, error)
	ListFunc            func(ctx context.Context) ([]*domain.Source, error)
	RemoveFunc          func(ctx context.Context, id string) error
	CombinedContentFunc func(ctx context.Context, ids []string) (string, error)
}

func (m *MockSourceRegistry) AddText(ctx context.Context, title, content string) (*domain.Source, error) {
	if m.AddTextFunc != nil {
		return m.AddTextFunc(ctx, title, content)
	}
	panic("MockSourceRegistry.AddTextFunc not implemented")
}
func (m *MockSourceRegistry) AddPDF(ctx context.Context, title string, data []byte) (*domain.Source, error) {
	if m.AddPDFFunc != nil {
		return m.AddPDFFunc(ctx, title, data)
	}
	panic("MockSourceRegistry.AddPDFFunc not implemented")
}
func (m *MockSourceRegistry) Get(ctx context.Context, id string) (*domain.Source, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	panic("MockSourceRegistry.GetFunc not implemented")
}
func (m *MockSourceRegistry) List(ctx context.Context) ([]*domain.Source, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	panic("MockSourceRegistry.ListFunc not implemented")
}
func (m *MockSourceRegistry) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	panic("MockSourceRegistry.RemoveFunc not implemented")
}
func (m *MockSourceRegistry) CombinedContent(ctx context.Context, ids []string) (string, error) {
	if m.CombinedContentFunc != nil {
		return m.CombinedContentFunc(ctx, ids)
	}
	panic("MockSourceRegistry.CombinedContentFunc not implemented")
}

// --- Helpers ---

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestApp(gen, fast *MockQuizGenerator, sources *MockSourceRegistry, providers []string) *fiber.App {
	return newTestAppWithCache(gen, fast, sources, providers, nil)
}

func newTestAppWithCache(gen, fast *MockQuizGenerator, sources *MockSourceRegistry, providers []string, cache handler.Pinger) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	var fastGen handler.QuizGenerator
	if fast != nil {
		fastGen = fast
	}
	handler.RegisterRoutes(app,
		handler.NewQuizHandler(gen, fastGen, sources),
		handler.NewSourceHandler(sources),
		handler.NewHealthHandler(providers, cache),
	)
	return app
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sampleReport(n int) *service.GenerationReport {
	qs := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, domain.NewQuestion("q", "What is chlorophyll?", []string{"A pigment", "A sugar", "A gas", "A root"}))
	}
	return &service.GenerationReport{
		RunID:        "01J0000000000000000000TEST",
		Requested:    n,
		Questions:    qs,
		Batches:      []domain.Batch{{Index: 0, Size: n}},
		FromAI:       n - 1,
		FromFallback: 1,
		Elapsed:      1500 * time.Millisecond,
	}
}

// --- Tests ---

func TestQuizHandler_GenerateQuiz(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got domain.GenerationRequest
		gen := &MockQuizGenerator{GenerateDetailedFunc: func(_ context.Context, req domain.GenerationRequest) (*service.GenerationReport, error) {
			got = req
			return sampleReport(3), nil
		}}
		app := newTestApp(gen, nil, &MockSourceRegistry{}, []string{"ollama"})

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/quiz/generate", dto.GenerateQuizRequest{
			Content: "Chlorophyll absorbs light.",
			Topic:   "Biology",
			Count:   3,
		}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[dto.GenerateQuizResponse](t, resp)
		assert.Equal(t, 3, body.Count)
		require.Len(t, body.Questions, 3)
		assert.Equal(t, "A pigment", body.Questions[0].Options[0])
		assert.Equal(t, dto.GenerationMeta{RunID: "01J0000000000000000000TEST", Requested: 3, Batches: 1, FromAI: 2, FromFallback: 1, ElapsedMs: 1500}, body.Meta)

		assert.Equal(t, domain.GenerationRequest{Content: "Chlorophyll absorbs light.", Topic: "Biology", RequestedCount: 3}, got)
	})

	t.Run("fast uses the fast generator", func(t *testing.T) {
		slow := &MockQuizGenerator{}
		fast := &MockQuizGenerator{GenerateDetailedFunc: func(_ context.Context, _ domain.GenerationRequest) (*service.GenerationReport, error) {
			return sampleReport(1), nil
		}}
		app := newTestApp(slow, fast, &MockSourceRegistry{}, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/quiz/generate", dto.GenerateQuizRequest{Content: "x", Fast: true}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("validation error", func(t *testing.T) {
		app := newTestApp(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/quiz/generate", dto.GenerateQuizRequest{Count: 500}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decode[middleware.ValidationErrorResponse](t, resp)
		assert.Equal(t, string(domain.CodeValidation), body.Code)
		assert.Len(t, body.Errors, 2)
	})

	t.Run("malformed body", func(t *testing.T) {
		app := newTestApp(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/quiz/generate", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("configuration error", func(t *testing.T) {
		gen := &MockQuizGenerator{GenerateDetailedFunc: func(_ context.Context, _ domain.GenerationRequest) (*service.GenerationReport, error) {
			return nil, domain.NewConfigurationError("no providers")
		}}
		app := newTestApp(gen, nil, &MockSourceRegistry{}, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/quiz/generate", dto.GenerateQuizRequest{Content: "x"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body := decode[middleware.ErrorResponse](t, resp)
		assert.Equal(t, string(domain.CodeConfiguration), body.Code)
	})
}

func TestQuizHandler_GenerateFromSources(t *testing.T) {
	id := util.NewULID()

	t.Run("success", func(t *testing.T) {
		var gotIDs []string
		sources := &MockSourceRegistry{CombinedContentFunc: func(_ context.Context, ids []string) (string, error) {
			gotIDs = ids
			return "combined text", nil
		}}
		gen := &MockQuizGenerator{GenerateDetailedFunc: func(_ context.Context, req domain.GenerationRequest) (*service.GenerationReport, error) {
			assert.Equal(t, "combined text", req.Content)
			return sampleReport(2), nil
		}}
		app := newTestApp(gen, nil, sources, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/quiz/generate-from-sources", dto.GenerateFromSourcesRequest{SourceIDs: []string{id}, Count: 2}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{id}, gotIDs)
	})

	t.Run("unknown source", func(t *testing.T) {
		sources := &MockSourceRegistry{CombinedContentFunc: func(_ context.Context, _ []string) (string, error) {
			return "", domain.NewSourceNotFoundError(id)
		}}
		app := newTestApp(&MockQuizGenerator{}, nil, sources, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/quiz/generate-from-sources", dto.GenerateFromSourcesRequest{SourceIDs: []string{id}}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		body := decode[middleware.ErrorResponse](t, resp)
		assert.Equal(t, string(domain.CodeSourceNotFound), body.Code)
		assert.Equal(t, id, body.Details["source_id"])
	})

	t.Run("invalid source id", func(t *testing.T) {
		app := newTestApp(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/quiz/generate-from-sources", dto.GenerateFromSourcesRequest{SourceIDs: []string{"nope"}}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSourceHandler_AddText(t *testing.T) {
	created := &domain.Source{ID: util.NewULID(), Title: "Cells", Kind: domain.SourceText, Content: "Cells divide.", WordCount: 2, CreatedAt: time.Now().UTC()}
	sources := &MockSourceRegistry{AddTextFunc: func(_ context.Context, title, content string) (*domain.Source, error) {
		assert.Equal(t, "Cells", title)
		assert.Equal(t, "Cells divide.", content)
		return created, nil
	}}
	app := newTestApp(&MockQuizGenerator{}, nil, sources, nil)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/sources/text", dto.AddTextSourceRequest{Title: "Cells", Content: "Cells divide."}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[dto.SourceResponse](t, resp)
	assert.Equal(t, created.ID, body.ID)
	assert.Equal(t, "Cells divide.", body.Preview)
	assert.Empty(t, body.Content)
}

func multipartPDF(t *testing.T, filename, title string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(data))
	require.NoError(t, err)
	if title != "" {
		require.NoError(t, w.WriteField("title", title))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sources/pdf", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSourceHandler_AddPDF(t *testing.T) {
	t.Run("title defaults to file name", func(t *testing.T) {
		sources := &MockSourceRegistry{AddPDFFunc: func(_ context.Context, title string, data []byte) (*domain.Source, error) {
			assert.Equal(t, "lecture-3", title)
			assert.Equal(t, []byte("%PDF-1.4 fake"), data)
			return &domain.Source{ID: util.NewULID(), Title: title, Kind: domain.SourcePDF}, nil
		}}
		app := newTestApp(&MockQuizGenerator{}, nil, sources, nil)

		resp, err := app.Test(multipartPDF(t, "lecture-3.pdf", "", []byte("%PDF-1.4 fake")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("missing file", func(t *testing.T) {
		app := newTestApp(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/sources/pdf", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not a pdf", func(t *testing.T) {
		app := newTestApp(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, nil)

		resp, err := app.Test(multipartPDF(t, "notes.docx", "", []byte("PK")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unreadable pdf", func(t *testing.T) {
		sources := &MockSourceRegistry{AddPDFFunc: func(_ context.Context, _ string, _ []byte) (*domain.Source, error) {
			return nil, domain.NewUnsupportedDocumentError("pdf", io.ErrUnexpectedEOF)
		}}
		app := newTestApp(&MockQuizGenerator{}, nil, sources, nil)

		resp, err := app.Test(multipartPDF(t, "broken.pdf", "Broken", []byte("garbage")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestSourceHandler_ListGetDelete(t *testing.T) {
	id := util.NewULID()
	long := string(bytes.Repeat([]byte("a"), 300))
	source := &domain.Source{ID: id, Title: "Long", Kind: domain.SourceText, Content: long, WordCount: 1}

	var removed string
	sources := &MockSourceRegistry{
		ListFunc: func(_ context.Context) ([]*domain.Source, error) { return []*domain.Source{source}, nil },
		GetFunc: func(_ context.Context, got string) (*domain.Source, error) {
			if got != id {
				return nil, domain.NewSourceNotFoundError(got)
			}
			return source, nil
		},
		RemoveFunc: func(_ context.Context, got string) error {
			removed = got
			return nil
		},
	}
	app := newTestApp(&MockQuizGenerator{}, nil, sources, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/sources", nil))
	require.NoError(t, err)
	list := decode[dto.SourceListResponse](t, resp)
	require.Equal(t, 1, list.Count)
	assert.Len(t, []rune(list.Sources[0].Preview), 203)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/sources/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	one := decode[dto.SourceResponse](t, resp)
	assert.Equal(t, long, one.Content)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/sources/"+util.NewULID(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/sources/not-a-ulid", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/sources/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, id, removed)
}

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name      string
		providers []string
		mode      string
	}{
		{"providers configured", []string{"ollama", "openai"}, handler.ModeLLM},
		{"no providers", nil, handler.ModeHeuristicOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, tt.providers)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			body := decode[dto.HealthResponse](t, resp)
			assert.Equal(t, "ok", body.Status)
			assert.Equal(t, tt.mode, body.Mode)
			assert.Len(t, body.Providers, len(tt.providers))
		})
	}
}

func TestHealthHandler_CacheProbe(t *testing.T) {
	t.Run("cache reachable", func(t *testing.T) {
		app := newTestAppWithCache(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, []string{"ollama"},
			pingFunc(func(context.Context) error { return nil }))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode[dto.HealthResponse](t, resp)
		assert.Equal(t, "ok", body.Cache)
	})

	t.Run("cache down", func(t *testing.T) {
		app := newTestAppWithCache(&MockQuizGenerator{}, nil, &MockSourceRegistry{}, []string{"ollama"},
			pingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") }))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		body := decode[dto.HealthResponse](t, resp)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "unavailable", body.Cache)
	})
}
