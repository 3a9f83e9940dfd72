package fallback

import (
	"strings"
	"sync"
	"testing"

	"quiz-forge/internal/analyzer"
	"quiz-forge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamPool_Take(t *testing.T) {
	pool := NewExamPool(ExtractExam(examDocument(12, true), nil))
	require.Equal(t, 12, pool.Remaining())

	first := pool.Take(5)
	assert.Equal(t, []string{"exam_q1", "exam_q2", "exam_q3", "exam_q4", "exam_q5"}, questionIDs(first))

	rest := pool.Take(10)
	require.Len(t, rest, 7)
	assert.Equal(t, "exam_q6", rest[0].ID)
	assert.Equal(t, "exam_q12", rest[6].ID)

	assert.Empty(t, pool.Take(3))
	assert.Equal(t, 0, pool.Remaining())
}

func TestExamPool_Nil(t *testing.T) {
	var pool *ExamPool
	assert.Empty(t, pool.Take(4))
	assert.Equal(t, 0, pool.Remaining())
}

func TestExamPool_ConcurrentTakeHandsOutEachOnce(t *testing.T) {
	pool := NewExamPool(ExtractExam(examDocument(40, true), nil))

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]int)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, q := range pool.Take(6) {
				mu.Lock()
				seen[q.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 40)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestSynthesizeFromPool_SharedAcrossWindows(t *testing.T) {
	content := examDocument(12, true)
	pool := NewExamPool(ExtractExam(content, nil))
	s := NewSynthesizer(nil, nil)

	// The window holds neither the answer key nor the later questions.
	window := content[:strings.Index(content, "4. ")]
	signals := analyzer.Analyze(window)
	signals.IsExamKey = true

	first := s.SynthesizeFromPool(window, signals, "", 8, pool)
	require.Len(t, first, 8)
	assert.Equal(t, "exam_q8", first[7].ID)
	assert.Equal(t, []string{"beta 1", "alpha 1", "gamma 1", "delta 1"}, first[0].Options)

	second := s.SynthesizeFromPool(window, signals, "", 6, pool)
	require.Len(t, second, 6)
	assert.Equal(t, []string{"exam_q9", "exam_q10", "exam_q11", "exam_q12"}, questionIDs(second[:4]))
	for _, q := range second[4:] {
		assert.NotContains(t, q.ID, "exam_")
	}
	assertWellFormed(t, second)
}

func questionIDs(qs []domain.Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}
