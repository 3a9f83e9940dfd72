package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"quiz-forge/internal/analyzer"
)

// SystemInstruction is sent as the system message to every provider.
const SystemInstruction = "You are an expert educational assessment designer. " +
	"You write accurate multiple-choice questions grounded only in the material you are given, " +
	"and you always answer with a JSON array of question objects."

// JSONOnlyDirective closes every prompt. The parser still tolerates models that ignore it.
const JSONOnlyDirective = "Respond with ONLY the JSON array. Do not write any text before or after it, " +
	"do not use markdown or code fences, and do not add comments. Start your response with [ and end with ]."

const (
	maxNumberHints     = 10
	maxDateHints       = 5
	maxProperNounHints = 10
)

// Request carries what the builder needs for one batch.
type Request struct {
	ContentSlice string
	Topic        string
	BatchSize    int
	BatchIndex   int
	ExamKey      bool
}

// Level is a cognitive level with its share of a batch, in percent.
type Level struct {
	Name    string
	Share   int
	Example string
}

// Levels is the soft distribution asked of the model. Shares sum to 100.
var Levels = []Level{
	{"recall", 20, "According to the text, what is the exact value/name/date for ...?"},
	{"comprehension", 25, "How does the content define or explain ...?"},
	{"application", 25, "Based on the example in the text about ..., which principle is demonstrated?"},
	{"analysis", 20, "According to the content, how does ... differ from ...?"},
	{"evaluation", 10, "Which conclusion is best supported by the evidence the text gives about ...?"},
}

// Builder produces provider-agnostic prompts.
type Builder struct {
	analyzer *analyzer.Analyzer
}

func NewBuilder(a *analyzer.Analyzer) *Builder {
	if a == nil {
		a = analyzer.New(analyzer.DefaultMaxKeyTerms)
	}
	return &Builder{analyzer: a}
}

// Build returns the prompt for one batch. The result always ends with JSONOnlyDirective.
func (b *Builder) Build(req Request) string {
	if req.ExamKey {
		return b.extractionPrompt(req)
	}
	return b.generationPrompt(req)
}

func (b *Builder) extractionPrompt(req Request) string {
	hash := contentHash(req.ContentSlice)
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are analyzing an exam or quiz document. Extract and reformat EXACTLY %d questions from this content.\n\n", req.BatchSize)
	fmt.Fprintf(&sb, "CONTENT (Section %d):\n\"\"\"%s\"\"\"\n\n", req.BatchIndex+1, req.ContentSlice)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Extract questions exactly as they appear in the document. Do NOT invent new questions.\n")
	sb.WriteString("2. Keep the original question text and the original correct answers.\n")
	sb.WriteString("3. Every question must have exactly 4 options. Add plausible distractors when fewer are given, keep the 4 most relevant when more are given.\n")
	sb.WriteString("4. Put the correct answer first. Use any answer key or solutions in the document to identify it.\n\n")
	sb.WriteString("OUTPUT FORMAT:\n")
	fmt.Fprintf(&sb, "[{\"id\": \"extracted_%s_1\", \"question\": \"<exact question text>\", \"options\": [\"<correct answer>\", \"<wrong 1>\", \"<wrong 2>\", \"<wrong 3>\"]}]\n\n", hash)
	sb.WriteString(JSONOnlyDirective)
	return sb.String()
}

func (b *Builder) generationPrompt(req Request) string {
	signals := b.analyzer.Analyze(req.ContentSlice)
	hash := contentHash(req.ContentSlice)
	var sb strings.Builder

	fmt.Fprintf(&sb, "Create exactly %d high-quality multiple-choice questions%s based EXCLUSIVELY on the content below.\n\n",
		req.BatchSize, topicPhrase(req.Topic))
	fmt.Fprintf(&sb, "CONTENT (Section %d, Hash: %s):\n\"\"\"%s\"\"\"\n\n", req.BatchIndex+1, hash, req.ContentSlice)

	sb.WriteString("CONTENT HINTS:\n")
	fmt.Fprintf(&sb, "- Key numbers: %s\n", hintList(signals.Numbers, maxNumberHints))
	fmt.Fprintf(&sb, "- Dates: %s\n", hintList(signals.Dates, maxDateHints))
	fmt.Fprintf(&sb, "- Proper nouns: %s\n\n", hintList(signals.ProperNouns, maxProperNounHints))

	sb.WriteString("QUALITY RULES:\n")
	sb.WriteString("1. Every question must reference specific facts, terms, numbers or names from THIS text.\n")
	sb.WriteString("2. The correct answer must be stated in or clearly derivable from the text.\n")
	sb.WriteString("3. Avoid generic questions that could apply to any document on the topic.\n")
	sb.WriteString("4. All 4 options must be grammatically parallel and similar in length.\n")
	sb.WriteString("5. Never use \"all of the above\" or \"none of the above\".\n")
	sb.WriteString("6. The FIRST option is ALWAYS the correct answer; wrong answers must be plausible but incorrect.\n\n")

	sb.WriteString("COGNITIVE LEVELS (guidance, not a hard quota):\n")
	for i, n := range Distribution(req.BatchSize) {
		fmt.Fprintf(&sb, "- %s: about %d (%s)\n", Levels[i].Name, n, Levels[i].Example)
	}
	sb.WriteString("\n")

	sb.WriteString("OUTPUT FORMAT:\n")
	fmt.Fprintf(&sb, "[{\"id\": \"q_%s_1\", \"question\": \"<question text>\", \"options\": [\"<correct answer>\", \"<wrong 1>\", \"<wrong 2>\", \"<wrong 3>\"]}]\n\n", hash)
	sb.WriteString(JSONOnlyDirective)
	return sb.String()
}

// Distribution splits n questions across Levels. The counts always sum to n.
func Distribution(n int) []int {
	counts := make([]int, len(Levels))
	if n <= 0 {
		return counts
	}
	assigned := 0
	for i, l := range Levels {
		counts[i] = n * l.Share / 100
		assigned += counts[i]
	}
	for i := 0; assigned < n; i = (i + 1) % len(counts) {
		counts[i]++
		assigned++
	}
	return counts
}

func topicPhrase(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	return fmt.Sprintf(" about %q", topic)
}

func hintList(values []string, limit int) string {
	if len(values) == 0 {
		return "none"
	}
	if len(values) > limit {
		values = values[:limit]
	}
	return strings.Join(values, ", ")
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
