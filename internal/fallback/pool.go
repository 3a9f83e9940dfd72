package fallback

import (
	"sync"

	"quiz-forge/internal/domain"
)

// ExamPool hands out exam questions extracted once from a whole document.
// Each question is handed out at most once. A nil pool is empty.
type ExamPool struct {
	mu        sync.Mutex
	questions []domain.Question
	next      int
}

func NewExamPool(questions []domain.Question) *ExamPool {
	return &ExamPool{questions: questions}
}

// Take returns up to n questions not handed out before, in document order.
func (p *ExamPool) Take(n int) []domain.Question {
	if p == nil || n <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	end := p.next + n
	if end > len(p.questions) {
		end = len(p.questions)
	}
	out := make([]domain.Question, end-p.next)
	copy(out, p.questions[p.next:end])
	p.next = end
	return out
}

func (p *ExamPool) Remaining() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.questions) - p.next
}
