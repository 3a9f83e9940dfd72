// Package fallback builds questions without a language model, either by lifting
// them out of an exam document or from lexical signals of the content.
package fallback

import (
	"quiz-forge/internal/analyzer"
	"quiz-forge/internal/domain"

	"go.uber.org/zap"
)

// Synthesizer is deterministic and safe for concurrent use.
type Synthesizer struct {
	analyzer *analyzer.Analyzer
	logger   *zap.Logger
}

func NewSynthesizer(a *analyzer.Analyzer, logger *zap.Logger) *Synthesizer {
	if a == nil {
		a = analyzer.New(analyzer.DefaultMaxKeyTerms)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{analyzer: a, logger: logger}
}

// Synthesize returns exactly n questions for n > 0, whatever the content.
func (s *Synthesizer) Synthesize(content, topic string, n int) []domain.Question {
	return s.SynthesizeWithSignals(content, s.analyzer.Analyze(content), topic, n)
}

// SynthesizeWithSignals is Synthesize with precomputed signals.
func (s *Synthesizer) SynthesizeWithSignals(content string, signals analyzer.Signals, topic string, n int) []domain.Question {
	var exams *ExamPool
	if signals.IsExamKey {
		exams = NewExamPool(ExtractExam(content, s.logger))
	}
	return s.SynthesizeFromPool(content, signals, topic, n, exams)
}

// SynthesizeFromPool takes exam questions from exams before falling back to
// heuristics over content. The orchestrator shares one pool, extracted from the
// whole document, across all batches of a run.
func (s *Synthesizer) SynthesizeFromPool(content string, signals analyzer.Signals, topic string, n int, exams *ExamPool) []domain.Question {
	if n <= 0 {
		return []domain.Question{}
	}

	var questions []domain.Question
	if signals.IsExamKey {
		questions = exams.Take(n)
		if len(questions) == 0 {
			s.logger.Info("no exam questions left, using heuristic synthesis")
		}
	}

	if missing := n - len(questions); missing > 0 {
		questions = append(questions, newHeuristic(content, signals, topic, missing).build()...)
	}

	s.logger.Debug("synthesized fallback questions",
		zap.Int("requested", n),
		zap.Int("returned", len(questions)),
		zap.Bool("exam_key", signals.IsExamKey),
	)
	return questions
}
