package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"quiz-forge/internal/analyzer"
	"quiz-forge/internal/config"
	"quiz-forge/internal/domain"
	"quiz-forge/internal/fallback"
	"quiz-forge/internal/parser"
	"quiz-forge/internal/prompt"
	"quiz-forge/internal/util"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minDerivedCount  = 5
	maxDerivedCount  = 200
	wordsPerQuestion = 200
)

var errBelowThreshold = errors.New("too few usable questions")

// GenerationReport is the outcome of one run with per-batch bookkeeping.
type GenerationReport struct {
	RunID        string
	Requested    int
	Questions    []domain.Question
	Batches      []domain.Batch
	FromAI       int
	FromFallback int
	Elapsed      time.Duration
}

// QuizGenerationService turns content into multiple-choice questions. It splits the
// work into batches, asks the gateway for each, and fills whatever the models could
// not produce with deterministic fallback questions.
type QuizGenerationService struct {
	gateway  domain.CompletionGateway
	analyzer *analyzer.Analyzer
	builder  *prompt.Builder
	parser   *parser.Parser
	fallback *fallback.Synthesizer
	cfg      config.GenerationConfig
	logger   *zap.Logger
	tracer   trace.Tracer
}

var _ domain.QuestionGenerator = (*QuizGenerationService)(nil)

// NewQuizGenerationService accepts a nil gateway only when heuristic-only generation is allowed.
func NewQuizGenerationService(gateway domain.CompletionGateway, cfg config.GenerationConfig, logger *zap.Logger) (*QuizGenerationService, error) {
	if gateway == nil && !cfg.AllowHeuristicOnly {
		return nil, domain.NewConfigurationError("no LLM providers are available and heuristic-only generation is disabled")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.AcceptanceRatio <= 0 || cfg.AcceptanceRatio > 1 {
		cfg.AcceptanceRatio = 0.5
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}

	a := analyzer.New(analyzer.DefaultMaxKeyTerms)
	return &QuizGenerationService{
		gateway:  gateway,
		analyzer: a,
		builder:  prompt.NewBuilder(a),
		parser:   parser.New(logger),
		fallback: fallback.NewSynthesizer(a, logger),
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("quiz-forge/service"),
	}, nil
}

// Generate returns exactly the requested number of questions. Provider failures
// and malformed output are absorbed by fallback synthesis.
func (s *QuizGenerationService) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	report, err := s.GenerateDetailed(ctx, req)
	if err != nil {
		return nil, err
	}
	return report.Questions, nil
}

func (s *QuizGenerationService) GenerateDetailed(ctx context.Context, req domain.GenerationRequest) (*GenerationReport, error) {
	start := time.Now()
	runID := util.NewULID()
	n := req.RequestedCount
	if n <= 0 {
		n = DefaultQuestionCount(req.Content)
	}

	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "quiz.generate", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("requested", n),
		attribute.Int("content_chars", len(req.Content)),
		attribute.Bool("parallel", s.cfg.Parallel),
	))
	defer span.End()

	signals := s.analyzer.Analyze(req.Content)
	batches := s.planBatches(req.Content, n)

	log := s.logger.With(zap.String("run_id", runID))

	// Exam questions and the answer key come from the whole document, not a
	// batch window. Batches take from the pool in turn.
	var exams *fallback.ExamPool
	if signals.IsExamKey {
		exams = fallback.NewExamPool(fallback.ExtractExam(req.Content, log))
	}
	log.Info("starting quiz generation",
		zap.Int("requested", n),
		zap.Int("batches", len(batches)),
		zap.Bool("exam_key", signals.IsExamKey),
		zap.Bool("parallel", s.cfg.Parallel),
	)

	if s.cfg.Parallel && len(batches) > 1 {
		var g errgroup.Group
		g.SetLimit(s.cfg.MaxParallel)
		for i := range batches {
			b := &batches[i]
			g.Go(func() error {
				s.runBatch(ctx, b, req.Topic, exams, signals.IsExamKey)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range batches {
			s.runBatch(ctx, &batches[i], req.Topic, exams, signals.IsExamKey)
		}
	}

	report := &GenerationReport{RunID: runID, Requested: n, Batches: batches}
	questions := make([]domain.Question, 0, n)
	for _, b := range batches {
		questions = append(questions, b.Questions...)
		report.FromAI += b.FromAI
		report.FromFallback += b.FromFallback
	}
	if len(questions) > n {
		questions = questions[:n]
	}
	if s.cfg.UniqueIDs {
		questions = UniqueIDs(questions)
	}
	report.Questions = questions
	report.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("from_ai", report.FromAI),
		attribute.Int("from_fallback", report.FromFallback),
	)
	log.Info("quiz generation finished",
		zap.Int("returned", len(questions)),
		zap.Int("from_ai", report.FromAI),
		zap.Int("from_fallback", report.FromFallback),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (s *QuizGenerationService) planBatches(content string, n int) []domain.Batch {
	batches := make([]domain.Batch, 0, (n+s.cfg.BatchSize-1)/s.cfg.BatchSize)
	for index, remaining := 0, n; remaining > 0; index++ {
		size := s.cfg.BatchSize
		if remaining < size {
			size = remaining
		}
		batches = append(batches, domain.Batch{
			Index:        index,
			Size:         size,
			ContentSlice: prompt.SliceContent(content, n, index, s.cfg.WindowOverlap),
			State:        domain.BatchPending,
		})
		remaining -= size
	}
	return batches
}

// runBatch drives one batch to a terminal state. It never fails: whatever the
// models did not deliver is synthesized.
func (s *QuizGenerationService) runBatch(ctx context.Context, b *domain.Batch, topic string, exams *fallback.ExamPool, examKey bool) {
	ctx, span := s.tracer.Start(ctx, "quiz.batch", trace.WithAttributes(
		attribute.Int("batch", b.Index),
		attribute.Int("size", b.Size),
	))
	defer span.End()

	var best []domain.Question
	accepted := false
	if s.gateway != nil && ctx.Err() == nil {
		best, accepted = s.attempt(ctx, b, topic, examKey)
	}

	if len(best) > b.Size {
		best = best[:b.Size]
	}
	b.Questions = best
	b.FromAI = len(best)

	shortfall := b.Size - len(best)
	if shortfall > 0 && (!accepted || s.cfg.FillPartialBatches) {
		signals := s.analyzer.Analyze(b.ContentSlice)
		signals.IsExamKey = examKey
		filler := s.fallback.SynthesizeFromPool(b.ContentSlice, signals, topic, shortfall, exams)
		b.Questions = append(b.Questions, filler...)
		b.FromFallback = len(filler)
	}
	b.State = domain.BatchAccepted

	span.SetAttributes(
		attribute.Int("attempts", b.Attempts),
		attribute.Int("from_ai", b.FromAI),
		attribute.Int("from_fallback", b.FromFallback),
	)
	s.logger.Debug("batch resolved",
		zap.Int("batch", b.Index),
		zap.Int("size", b.Size),
		zap.Int("attempts", b.Attempts),
		zap.Int("from_ai", b.FromAI),
		zap.Int("from_fallback", b.FromFallback),
		zap.Bool("accepted", accepted),
	)
}

// attempt calls the gateway up to MaxAttempts times and keeps the largest parse.
func (s *QuizGenerationService) attempt(ctx context.Context, b *domain.Batch, topic string, examKey bool) ([]domain.Question, bool) {
	var best []domain.Question

	op := func() error {
		b.Attempts++
		b.State = domain.BatchAttempting

		p := s.builder.Build(prompt.Request{
			ContentSlice: b.ContentSlice,
			Topic:        topic,
			BatchSize:    b.Size,
			BatchIndex:   b.Index,
			ExamKey:      examKey,
		})
		res, err := s.gateway.Complete(ctx, prompt.SystemInstruction, p)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		questions := s.parser.Parse(res.Text)
		if len(questions) > len(best) {
			best = questions
		}
		if !s.acceptable(len(questions), b.Size) {
			return fmt.Errorf("%w: %d of %d from %s", errBelowThreshold, len(questions), b.Size, res.Provider)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("batch attempt failed, retrying",
			zap.Int("batch", b.Index),
			zap.Int("attempt", b.Attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, s.retryPolicy(ctx), notify)
	if err != nil {
		b.State = domain.BatchExhausted
		s.logger.Warn("batch exhausted, using fallback for the shortfall",
			zap.Int("batch", b.Index),
			zap.Int("attempts", b.Attempts),
			zap.Int("partial", len(best)),
			zap.Error(err),
		)
		return best, false
	}
	return best, true
}

func (s *QuizGenerationService) retryPolicy(ctx context.Context) backoff.BackOff {
	var policy backoff.BackOff = &backoff.ZeroBackOff{}
	if s.cfg.RetryDelay > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = s.cfg.RetryDelay
		exp.MaxElapsedTime = 0
		policy = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.MaxAttempts-1)), ctx)
}

// acceptable: at least one question and at least floor(size*ratio) of them.
func (s *QuizGenerationService) acceptable(count, size int) bool {
	return count >= 1 && count >= int(math.Floor(float64(size)*s.cfg.AcceptanceRatio))
}

// DefaultQuestionCount derives a count from content length, clamped to [5, 200].
func DefaultQuestionCount(content string) int {
	n := analyzer.WordCount(content) / wordsPerQuestion
	if n < minDerivedCount {
		return minDerivedCount
	}
	if n > maxDerivedCount {
		return maxDerivedCount
	}
	return n
}

// UniqueIDs suffixes repeated IDs with -2, -3, ... in output order.
func UniqueIDs(questions []domain.Question) []domain.Question {
	used := make(map[string]struct{}, len(questions))
	for i := range questions {
		id := questions[i].ID
		if _, dup := used[id]; dup {
			for k := 2; ; k++ {
				candidate := fmt.Sprintf("%s-%d", id, k)
				if _, taken := used[candidate]; !taken {
					id = candidate
					break
				}
			}
			questions[i].ID = id
		}
		used[id] = struct{}{}
	}
	return questions
}
