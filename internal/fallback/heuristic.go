package fallback

import (
	"fmt"
	"strconv"
	"strings"

	"quiz-forge/internal/analyzer"
	"quiz-forge/internal/domain"
)

const (
	contextRadius       = 50
	paragraphLeadLength = 60
	minLeadSentence     = 20
)

// heuristic builds questions type by type in a fixed order:
// definitions, facts, concepts, paragraphs, then application/synthesis until full.
type heuristic struct {
	content   string
	signals   analyzer.Signals
	topic     string
	target    int
	seq       int
	questions []domain.Question
}

func newHeuristic(content string, signals analyzer.Signals, topic string, target int) *heuristic {
	return &heuristic{
		content:   content,
		signals:   signals,
		topic:     strings.TrimSpace(topic),
		target:    target,
		questions: make([]domain.Question, 0, target),
	}
}

func (h *heuristic) full() bool {
	return len(h.questions) >= h.target
}

func (h *heuristic) add(prefix, text string, options []string) {
	if h.full() {
		return
	}
	h.seq++
	h.questions = append(h.questions, domain.NewQuestion(fmt.Sprintf("%s_%d", prefix, h.seq), text, options))
}

func (h *heuristic) topicOr(fallback string) string {
	if h.topic == "" {
		return fallback
	}
	return h.topic
}

func (h *heuristic) build() []domain.Question {
	if h.target <= 0 {
		return []domain.Question{}
	}
	perType := h.target / 5
	if perType < 1 {
		perType = 1
	}

	h.definitions(perType)
	h.facts(perType)
	h.concepts(perType)
	h.paragraphs(perType)
	h.applications()
	h.synthesis()
	return h.questions
}

func (h *heuristic) definitions(limit int) {
	defs := h.signals.Definitions
	fillers := []string{
		fmt.Sprintf("An unrelated concept in %s", h.topicOr("the field")),
		fmt.Sprintf("A process that plays no part in %s", h.topicOr("the field")),
		fmt.Sprintf("A term borrowed from a different field than %s", h.topicOr("this one")),
	}

	for i := 0; i < len(defs) && i < limit && !h.full(); i++ {
		options := []string{defs[i].Definition}
		for j := range defs {
			if j != i && len(options) < domain.OptionsPerQuestion {
				options = append(options, defs[j].Definition)
			}
		}
		for k := 0; len(options) < domain.OptionsPerQuestion; k++ {
			options = append(options, fillers[k])
		}
		h.add("def", fmt.Sprintf("According to the content, what is %s?", defs[i].Term), options)
	}
}

func (h *heuristic) facts(limit int) {
	for i := 0; i < len(h.signals.Numbers) && i < limit && !h.full(); i++ {
		fact := h.signals.Numbers[i]
		h.add("fact",
			fmt.Sprintf("According to the content, which value completes the statement %q?", h.factContext(fact)),
			factOptions(fact))
	}
}

// factContext returns the text around the first occurrence of fact with the fact blanked out.
func (h *heuristic) factContext(fact string) string {
	idx := strings.Index(h.content, fact)
	if idx < 0 {
		return fmt.Sprintf("... ___ ... (related to %s)", h.topicOr("the content"))
	}
	before := []rune(h.content[:idx])
	after := []rune(h.content[idx+len(fact):])
	if len(before) > contextRadius {
		before = before[len(before)-contextRadius:]
	}
	if len(after) > contextRadius {
		after = after[:contextRadius]
	}
	return "..." + collapseSpace(string(before)+" ___ "+string(after)) + "..."
}

var genericDistractors = []string{"Different value", "Another value", "Incorrect value"}

// factOptions returns the fact and three perturbed values (+10, -5, x2).
// Non-numeric facts and collisions fall back to generic distractors.
func factOptions(fact string) []string {
	options := []string{fact}
	number, suffix := splitNumber(fact)
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return append(options, genericDistractors...)
	}

	base := int(v)
	seen := map[string]struct{}{fact: {}}
	for i, d := range []int{base + 10, base - 5, base * 2} {
		s := strconv.Itoa(d) + suffix
		if _, dup := seen[s]; dup {
			s = genericDistractors[i]
		}
		seen[s] = struct{}{}
		options = append(options, s)
	}
	return options
}

func splitNumber(fact string) (number, suffix string) {
	for _, sfx := range []string{"%", " percent", "percent"} {
		if strings.HasSuffix(fact, sfx) {
			return strings.TrimSuffix(fact, sfx), sfx
		}
	}
	return fact, ""
}

func (h *heuristic) concepts(limit int) {
	concepts := h.signals.KeyConcepts()
	for i := 0; i < len(concepts) && i < limit && !h.full(); i++ {
		concept := concepts[i]
		if !h.mentioned(concept) {
			continue
		}
		h.add("concept",
			fmt.Sprintf("The content discusses %s. Based on the material, what is the primary focus regarding this concept?", concept),
			[]string{
				fmt.Sprintf("Its role and significance in %s", h.topicOr("the subject matter")),
				"Its complete irrelevance to the topic",
				"Only its historical background without current applications",
				"Its use in completely different contexts",
			})
	}
}

func (h *heuristic) mentioned(concept string) bool {
	lower := strings.ToLower(concept)
	for _, s := range h.signals.Sentences {
		if strings.Contains(strings.ToLower(s), lower) {
			return true
		}
	}
	return false
}

func (h *heuristic) paragraphs(limit int) {
	for i := 0; i < len(h.signals.Paragraphs) && i < limit && !h.full(); i++ {
		lead := leadSentence(h.signals.Paragraphs[i])
		if lead == "" {
			continue
		}
		h.add("para",
			fmt.Sprintf("In the section that begins with '%s...', what is the main point being discussed?", truncateRunes(lead, paragraphLeadLength)),
			[]string{
				fmt.Sprintf("The detailed explanation of concepts related to %s", h.topicOr("the subject")),
				"Unrelated background information",
				"Contradictory statements to the main topic",
				"General information without specific details",
			})
	}
}

func leadSentence(paragraph string) string {
	for _, s := range strings.Split(paragraph, ".") {
		s = collapseSpace(s)
		if len([]rune(s)) > minLeadSentence {
			return s
		}
	}
	return ""
}

func (h *heuristic) applications() {
	for _, concept := range h.signals.KeyConcepts() {
		if h.full() {
			return
		}
		h.add("app",
			fmt.Sprintf("Based on the content's discussion of %s, how would this concept be applied in practice?", strings.ToLower(concept)),
			[]string{
				fmt.Sprintf("By understanding and applying the principles explained in the context of %s", h.topicOr("the field")),
				"By ignoring the content and using unrelated methods",
				"By only memorizing terms without understanding",
				"By applying it to completely different, unrelated scenarios",
			})
	}
}

// synthesis cycles through generic templates until the target is reached.
// It needs no signals at all, so it always terminates with a full set.
func (h *heuristic) synthesis() {
	templates := h.synthesisTemplates()
	for i := 0; !h.full(); i++ {
		t := templates[i%len(templates)]
		h.add("synth", t.text, t.options)
	}
}

type template struct {
	text    string
	options []string
}

func (h *heuristic) synthesisTemplates() []template {
	concepts := h.signals.KeyConcepts()
	templates := []template{
		{
			text: fmt.Sprintf("What is the overall purpose of this content regarding %s?", h.topicOr("the subject matter")),
			options: []string{
				"To provide comprehensive understanding and practical knowledge",
				"To confuse readers with contradictory information",
				"To present only theoretical concepts without applications",
				"To discuss unrelated topics",
			},
		},
		{
			text: "Based on the structure and content of the material, what is the primary learning objective?",
			options: []string{
				fmt.Sprintf("To understand the principles and applications of %s", h.topicOr("the subject matter")),
				"To memorize specific terminology only",
				"To provide general background information",
				"To introduce unrelated concepts",
			},
		},
	}

	if len(concepts) >= 2 {
		templates = append(templates, template{
			text: fmt.Sprintf("How does the content suggest %s relates to %s?", strings.ToLower(concepts[0]), strings.ToLower(concepts[1])),
			options: []string{
				fmt.Sprintf("They are interconnected concepts that work together in %s", h.topicOr("the system")),
				"They are completely independent and unrelated",
				"One completely replaces the other",
				"They are contradictory concepts",
			},
		})
	}

	if len(h.signals.Numbers) > 0 {
		templates = append(templates, template{
			text: fmt.Sprintf("The content mentions specific quantitative information. What role does the figure '%s' play in the context?", h.signals.Numbers[0]),
			options: []string{
				fmt.Sprintf("It represents a key measurement or statistic relevant to %s", h.topicOr("the topic")),
				"It's just a random number with no significance",
				"It's used only as an example with no real meaning",
				"It contradicts the main points of the content",
			},
		})
	} else {
		templates = append(templates, template{
			text: "What approach does the content take to explain the subject matter?",
			options: []string{
				"It provides detailed explanations with examples and context",
				"It only lists facts without explanation",
				"It focuses solely on historical background",
				"It avoids explaining the core concepts",
			},
		})
	}

	mainConcept := "the main concepts"
	if len(concepts) > 0 {
		mainConcept = strings.ToLower(concepts[0])
	}
	templates = append(templates,
		template{
			text: fmt.Sprintf("How would you apply the knowledge about %s in a practical situation?", h.topicOr("this subject")),
			options: []string{
				fmt.Sprintf("Use the principles and concepts to analyze and solve problems related to %s", h.topicOr("the field")),
				"Simply repeat the exact words from the content",
				"Ignore the content and use unrelated methods",
				"Apply it to completely different, unrelated situations",
			},
		},
		template{
			text: fmt.Sprintf("What is the most important takeaway from this content about %s?", h.topicOr("the subject")),
			options: []string{
				fmt.Sprintf("A comprehensive understanding of %s", mainConcept),
				"Memorization of specific details only",
				"General awareness without deep understanding",
				"Unrelated information",
			},
		},
	)
	return templates
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
