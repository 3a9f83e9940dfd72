// Package analyzer extracts lexical signals from source text. The signals feed
// prompt hints and the heuristic question synthesizer.
package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

const (
	// DefaultMaxKeyTerms is how many frequent terms Analyze keeps.
	DefaultMaxKeyTerms = 20

	minTermLength      = 4
	minSentenceLength  = 10
	minParagraphLength = 50

	examMinNumbered = 10
	examMinOptions  = 40
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the and or but in on at to for of with by is are was were be been
		have has had do does did will would could should may might can this that these those a an as
		from which who what when where why how into also their there they them then than such about
		other more most some many each very only over under between after before while because`) {
		stopWords[w] = struct{}{}
	}
}

var (
	numberPattern     = regexp.MustCompile(`\b\d+(?:\.\d+)?(?:%|\s?percent\b)?`)
	datePattern       = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}|\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}|(?:19|20)\d{2})\b`)
	properNounPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+\b`)
	definitionPattern = regexp.MustCompile(`([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*)\s+(?:is defined as|is|means|refers to|defined as)\s+([^.\n]+)`)

	numberedLinePattern = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	optionLinePattern   = regexp.MustCompile(`(?m)^[ \t]*[A-D][.)][ \t]+`)
)

// Definition is a term and the clause that defines it.
type Definition struct {
	Term       string
	Definition string
}

// Signals is everything Analyze extracts from a text.
type Signals struct {
	KeyTerms    []string
	Numbers     []string
	Dates       []string
	ProperNouns []string
	Definitions []Definition
	Sentences   []string
	Paragraphs  []string
	IsExamKey   bool
	WordCount   int
}

// KeyConcepts returns the key terms with their first letter upper-cased.
func (s Signals) KeyConcepts() []string {
	return lo.Map(s.KeyTerms, func(t string, _ int) string { return titleCase(t) })
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	maxKeyTerms int
}

// New returns an Analyzer that keeps up to maxKeyTerms frequent terms.
func New(maxKeyTerms int) *Analyzer {
	if maxKeyTerms <= 0 {
		maxKeyTerms = DefaultMaxKeyTerms
	}
	return &Analyzer{maxKeyTerms: maxKeyTerms}
}

// Analyze uses the default term limit.
func Analyze(text string) Signals {
	return New(DefaultMaxKeyTerms).Analyze(text)
}

// Analyze is a pure function of text. Empty or non-English input yields empty lists.
func (a *Analyzer) Analyze(text string) Signals {
	return Signals{
		KeyTerms:    KeyTerms(text, a.maxKeyTerms),
		Numbers:     lo.Uniq(numberPattern.FindAllString(text, -1)),
		Dates:       lo.Uniq(datePattern.FindAllString(text, -1)),
		ProperNouns: lo.Uniq(properNounPattern.FindAllString(text, -1)),
		Definitions: definitions(text),
		Sentences:   splitTrimmed(text, ".", minSentenceLength),
		Paragraphs:  splitTrimmed(text, "\n\n", minParagraphLength),
		IsExamKey:   IsExamKey(text),
		WordCount:   WordCount(text),
	}
}

// KeyTerms returns up to n non-stopword terms ordered by frequency.
// Ties keep first-occurrence order.
func KeyTerms(text string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, word := range tokenize(text) {
		if len([]rune(word)) < minTermLength || !isAlpha(word) {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// IsExamKey reports whether text looks like an already formatted exam:
// at least 10 numbered lines and 40 lettered option lines.
func IsExamKey(text string) bool {
	numbered := len(numberedLinePattern.FindAllStringIndex(text, -1))
	if numbered < examMinNumbered {
		return false
	}
	return len(optionLinePattern.FindAllStringIndex(text, -1)) >= examMinOptions
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func definitions(text string) []Definition {
	var defs []Definition
	seen := make(map[string]struct{})
	for _, m := range definitionPattern.FindAllStringSubmatch(text, -1) {
		term := strings.TrimSpace(m[1])
		def := strings.TrimSpace(m[2])
		if def == "" {
			continue
		}
		if _, stop := stopWords[strings.ToLower(term)]; stop {
			continue
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		defs = append(defs, Definition{Term: term, Definition: def})
	}
	return defs
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func splitTrimmed(text, sep string, minLen int) []string {
	var out []string
	for _, part := range strings.Split(text, sep) {
		part = strings.TrimSpace(part)
		if len([]rune(part)) > minLen {
			out = append(out, part)
		}
	}
	return out
}

func titleCase(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
