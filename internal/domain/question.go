package domain

import (
	"fmt"
	"time"
)

// OptionsPerQuestion is the fixed number of answer options every question carries.
const OptionsPerQuestion = 4

// Question is a multiple-choice question. Options[0] is the correct answer by convention.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// NewQuestion builds a question and normalizes its options to exactly four entries.
func NewQuestion(id, text string, options []string) Question {
	return Question{
		ID:      id,
		Text:    text,
		Options: NormalizeOptions(options),
	}
}

// NormalizeOptions pads with "Option <letter>" placeholders or truncates to four options.
func NormalizeOptions(options []string) []string {
	out := make([]string, 0, OptionsPerQuestion)
	for _, opt := range options {
		if len(out) == OptionsPerQuestion {
			break
		}
		out = append(out, opt)
	}
	for len(out) < OptionsPerQuestion {
		out = append(out, OptionPlaceholder(len(out)))
	}
	return out
}

// OptionPlaceholder returns the filler text for the option at index i.
func OptionPlaceholder(i int) string {
	return fmt.Sprintf("Option %c", rune('A'+i))
}

// GenerationRequest is the input to a generation run.
// RequestedCount <= 0 means the count is derived from the content length.
type GenerationRequest struct {
	Content        string
	Topic          string
	RequestedCount int
}

// BatchState tracks a batch through the orchestrator.
type BatchState string

const (
	BatchPending    BatchState = "pending"
	BatchAttempting BatchState = "attempting"
	BatchAccepted   BatchState = "accepted"
	BatchExhausted  BatchState = "exhausted"
)

// Batch is one bounded unit of generation work.
type Batch struct {
	Index        int
	Size         int
	ContentSlice string
	State        BatchState
	Attempts     int
	FromAI       int
	FromFallback int
	Questions    []Question
}

// ProviderAttempt records one provider call made for a batch.
type ProviderAttempt struct {
	Provider string
	Success  bool
	Response string
	Err      error
	Duration time.Duration
}
