package fallback

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"quiz-forge/internal/domain"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

const (
	minExamQuestionLength = 10
	minAnswerKeyEntries   = 10
	examMatchTimeout      = 2 * time.Second
)

// Question and option text may continue over several lines but never into the
// next numbered question or lettered option.
const (
	blockText  = `((?:(?!\n[ \t]*(?:\d+[.)]|\(?[A-Da-d][.)]|\[[A-Da-d]\]))[\s\S])+?)`
	inlineText = `([^\n]+?)`
)

// ExamFormat is one layout of "numbered question followed by four lettered options".
type ExamFormat struct {
	Name    string
	Pattern *regexp2.Regexp
}

func examFormat(name, pattern string, opts regexp2.RegexOptions) ExamFormat {
	re := regexp2.MustCompile(pattern, opts)
	re.MatchTimeout = examMatchTimeout
	return ExamFormat{Name: name, Pattern: re}
}

func option(letter string) string {
	return `\(?[` + letter + strings.ToLower(letter) + `][.)][ \t]*`
}

// ExamFormats are tried in order. Add new layouts here.
var ExamFormats = []ExamFormat{
	examFormat("separate_lines",
		`(?:^|\n)[ \t]*(\d+)[.)][ \t]*`+blockText+
			`\n[ \t]*`+option("A")+blockText+
			`\n[ \t]*`+option("B")+blockText+
			`\n[ \t]*`+option("C")+blockText+
			`\n[ \t]*`+option("D")+`([^\n]+?)[ \t]*(?=\n|$)`,
		regexp2.Multiline),
	examFormat("bracketed_options",
		`(?:^|\n)[ \t]*(\d+)[.)][ \t]*`+blockText+
			`\n[ \t]*\[A\][ \t]*`+blockText+
			`\n[ \t]*\[B\][ \t]*`+blockText+
			`\n[ \t]*\[C\][ \t]*`+blockText+
			`\n[ \t]*\[D\][ \t]*([^\n]+?)[ \t]*(?=\n|$)`,
		regexp2.Multiline),
	examFormat("labelled",
		`\b(?:Question|Q)[ \t]*(\d+)[ \t]*[:.)][ \t]*`+blockText+
			`\s*(?:(?:Options?|Choices?)[ \t]*:\s*)?`+option("A")+blockText+
			`\s+`+option("B")+blockText+
			`\s+`+option("C")+blockText+
			`\s+`+option("D")+`([^\n]+?)[ \t]*(?=\n|$)`,
		regexp2.Multiline|regexp2.IgnoreCase),
	examFormat("inline_options",
		`(?:^|\n)[ \t]*(\d+)[.)][ \t]*`+inlineText+
			`[ \t]+`+option("A")+inlineText+
			`[ \t]+`+option("B")+inlineText+
			`[ \t]+`+option("C")+inlineText+
			`[ \t]+`+option("D")+`([^\n]+?)[ \t]*(?=\n|$)`,
		regexp2.Multiline),
}

// AnswerKeyFormat is one layout of an answer key entry such as "1. B" or "1-B".
type AnswerKeyFormat struct {
	Name    string
	Pattern *regexp.Regexp
}

var AnswerKeyFormats = []AnswerKeyFormat{
	{"line", regexp.MustCompile(`(?m)^[ \t]*(\d{1,3})[ \t]*[.)][ \t]*([A-D])[ \t]*$`)},
	{"dash", regexp.MustCompile(`\b(\d{1,3})[ \t]*-[ \t]*([A-D])\b`)},
	{"colon", regexp.MustCompile(`\b(\d{1,3})[ \t]*:[ \t]*([A-D])\b`)},
}

type examMatch struct {
	number   int
	position int
	text     string
	options  []string
}

// ExtractExam pulls numbered four-option questions out of an exam document.
// Questions are deduplicated by normalized text and returned in document order.
// When an answer key is present the correct option is moved to index 0.
func ExtractExam(content string, logger *zap.Logger) []domain.Question {
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]struct{})
	var matches []examMatch

	for _, format := range ExamFormats {
		found := 0
		m, err := format.Pattern.FindStringMatch(content)
		for m != nil && err == nil {
			groups := m.Groups()
			text := collapseSpace(groups[2].String())
			key := strings.ToLower(text)
			if _, dup := seen[key]; !dup && len([]rune(text)) > minExamQuestionLength {
				seen[key] = struct{}{}
				number, _ := strconv.Atoi(groups[1].String())
				matches = append(matches, examMatch{
					number:   number,
					position: m.Index,
					text:     text,
					options: []string{
						collapseSpace(groups[3].String()),
						collapseSpace(groups[4].String()),
						collapseSpace(groups[5].String()),
						collapseSpace(groups[6].String()),
					},
				})
				found++
			}
			m, err = format.Pattern.FindNextMatch(m)
		}
		if err != nil {
			logger.Warn("exam pattern aborted", zap.String("format", format.Name), zap.Error(err))
		}
		if found > 0 {
			logger.Debug("exam format matched", zap.String("format", format.Name), zap.Int("questions", found))
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].position < matches[j].position })

	answers := FindAnswerKey(content)
	questions := make([]domain.Question, 0, len(matches))
	for _, em := range matches {
		options := em.options
		if letter, ok := answers[em.number]; ok {
			options = correctFirst(options, int(letter-'A'))
		}
		questions = append(questions, domain.NewQuestion(fmt.Sprintf("exam_q%d", em.number), em.text, options))
	}

	logger.Info("extracted exam questions",
		zap.Int("questions", len(questions)),
		zap.Int("answer_key_entries", len(answers)),
	)
	return questions
}

// FindAnswerKey returns question number -> correct letter from the first answer
// key layout with at least ten entries. Later entries win over earlier ones.
func FindAnswerKey(content string) map[int]rune {
	for _, format := range AnswerKeyFormats {
		found := format.Pattern.FindAllStringSubmatch(content, -1)
		if len(found) < minAnswerKeyEntries {
			continue
		}
		answers := make(map[int]rune, len(found))
		for _, f := range found {
			n, err := strconv.Atoi(f[1])
			if err != nil {
				continue
			}
			answers[n] = rune(f[2][0])
		}
		return answers
	}
	return nil
}

func correctFirst(options []string, idx int) []string {
	if idx <= 0 || idx >= len(options) {
		return options
	}
	out := make([]string, 0, len(options))
	out = append(out, options[idx])
	out = append(out, options[:idx]...)
	out = append(out, options[idx+1:]...)
	return out
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
