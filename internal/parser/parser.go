// Package parser recovers question records from raw model output. Models are asked
// for a bare JSON array but often wrap it in prose or code fences, return a single
// object, or emit several objects with no enclosing array.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"quiz-forge/internal/domain"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Strategy names the extraction step that produced a result.
type Strategy string

const (
	StrategyNone         Strategy = ""
	StrategyDirect       Strategy = "direct"
	StrategyFenced       Strategy = "fenced_block"
	StrategyBracketSpan  Strategy = "bracket_span"
	StrategySingleObject Strategy = "single_object"
	StrategyMultiObject  Strategy = "multi_object"
	StrategyCleanup      Strategy = "aggressive_cleanup"
)

const elementSchemaJSON = `{
	"type": "object",
	"required": ["question", "options"],
	"properties": {
		"question": {"type": "string", "minLength": 1},
		"options": {"type": "array"}
	}
}`

var (
	thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fencedPattern     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\[.*?\\])\\s*```")
	fenceMarker       = regexp.MustCompile("```[A-Za-z]*")
	trailingComma     = regexp.MustCompile(`,\s*([\]}])`)

	smartQuotes = strings.NewReplacer("\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u2018", "'", "\u2019", "'")

	errTrailingData = errors.New("parser: trailing data after JSON value")

	elementSchema = mustSchema(elementSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("parser: invalid element schema: %v", err))
	}
	return schema
}

// Result is the outcome of one Parse call.
type Result struct {
	Questions []domain.Question
	Strategy  Strategy
	Skipped   int
}

// Parser is stateless and safe for concurrent use.
type Parser struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse returns the questions found in raw, or an empty slice. It never panics.
func (p *Parser) Parse(raw string) []domain.Question {
	return p.ParseDetailed(raw).Questions
}

// ParseDetailed runs the strategies in order and stops at the first one that
// yields at least one valid question.
func (p *Parser) ParseDetailed(raw string) (result Result) {
	result.Questions = []domain.Question{}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("parser recovered from panic", zap.Any("panic", r))
			result = Result{Questions: []domain.Question{}}
		}
	}()

	text := strings.TrimSpace(thinkBlockPattern.ReplaceAllString(raw, ""))
	if text == "" {
		return result
	}

	strategies := []struct {
		name Strategy
		run  func(string) [][]interface{}
	}{
		{StrategyDirect, direct},
		{StrategyFenced, fenced},
		{StrategyBracketSpan, bracketSpan},
		{StrategySingleObject, singleObject},
		{StrategyMultiObject, multiObject},
		{StrategyCleanup, cleanup},
	}

	for _, s := range strategies {
		for _, items := range s.run(text) {
			questions, skipped := p.normalize(items)
			if len(questions) == 0 {
				continue
			}
			p.logger.Debug("parsed model output",
				zap.String("strategy", string(s.name)),
				zap.Int("questions", len(questions)),
				zap.Int("skipped", skipped),
			)
			return Result{Questions: questions, Strategy: s.name, Skipped: skipped}
		}
	}

	p.logger.Debug("no strategy recovered questions", zap.Int("raw_length", len(raw)))
	return result
}

// direct parses the whole text.
func direct(text string) [][]interface{} {
	return candidates(text)
}

// fenced parses each ``` block that holds an array.
func fenced(text string) [][]interface{} {
	var out [][]interface{}
	for _, m := range fencedPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, candidates(m[1])...)
	}
	return out
}

// bracketSpan parses from the first '[' to the last ']'.
func bracketSpan(text string) [][]interface{} {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	return candidates(text[start : end+1])
}

// singleObject handles output holding exactly one balanced question object.
func singleObject(text string) [][]interface{} {
	objs := questionObjects(text)
	if len(objs) != 1 {
		return nil
	}
	return candidates(objs[0])
}

// multiObject collects every balanced question object, dropping ones that do not parse.
func multiObject(text string) [][]interface{} {
	objs := questionObjects(text)
	if len(objs) < 2 {
		return nil
	}
	var items []interface{}
	for _, obj := range objs {
		for _, c := range candidates(obj) {
			items = append(items, c...)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return [][]interface{}{items}
}

// cleanup strips fences and anything outside the outermost brackets, swaps
// typographic quotes for ASCII ones and drops trailing commas, then parses.
func cleanup(text string) [][]interface{} {
	cleaned := strings.TrimSpace(fenceMarker.ReplaceAllString(text, ""))
	cleaned = smartQuotes.Replace(cleaned)
	cleaned = trailingComma.ReplaceAllString(cleaned, "$1")
	start := strings.IndexAny(cleaned, "[{")
	end := strings.LastIndexAny(cleaned, "]}")
	if start < 0 || end <= start {
		return nil
	}
	return candidates(cleaned[start : end+1])
}

// candidates decodes s and returns the question lists it can represent.
func candidates(s string) [][]interface{} {
	v, err := decode(s)
	if err != nil {
		return nil
	}
	switch t := v.(type) {
	case []interface{}:
		return [][]interface{}{t}
	case map[string]interface{}:
		if _, ok := t["question"]; ok {
			if _, ok := t["options"]; ok {
				return [][]interface{}{{t}}
			}
		}
		if nested, ok := t["questions"].([]interface{}); ok {
			return [][]interface{}{nested}
		}
	}
	return nil
}

// decode keeps numbers as json.Number so an out-of-range value in one element
// does not fail the whole document.
func decode(s string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

// questionObjects returns the balanced top-level {...} spans that mention both
// "question" and "options". Braces inside string literals are ignored.
func questionObjects(text string) []string {
	var objs []string
	depth, start := 0, -1
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				obj := text[start : i+1]
				if strings.Contains(obj, `"question"`) && strings.Contains(obj, `"options"`) {
					objs = append(objs, obj)
				}
				start = -1
			}
		}
	}
	return objs
}

// normalize converts decoded elements into questions with exactly four options.
func (p *Parser) normalize(items []interface{}) ([]domain.Question, int) {
	questions := make([]domain.Question, 0, len(items))
	skipped := 0

	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			skipped++
			p.logger.Debug("skipping non-object element", zap.Int("index", i))
			continue
		}

		res, err := elementSchema.Validate(gojsonschema.NewGoLoader(m))
		if err != nil || !res.Valid() {
			skipped++
			p.logger.Debug("skipping invalid question element", zap.Int("index", i), zap.Strings("errors", schemaErrors(res, err)))
			continue
		}

		text := strings.TrimSpace(m["question"].(string))
		if text == "" {
			skipped++
			continue
		}

		rawOptions := m["options"].([]interface{})
		options := make([]string, 0, len(rawOptions))
		for j, o := range rawOptions {
			s := optionString(o)
			if s == "" {
				s = domain.OptionPlaceholder(j)
			}
			options = append(options, s)
		}

		questions = append(questions, domain.NewQuestion(elementID(m["id"], i), text, options))
	}
	return questions, skipped
}

func elementID(v interface{}, index int) string {
	switch t := v.(type) {
	case string:
		if id := strings.TrimSpace(t); id != "" {
			return id
		}
	case json.Number:
		return t.String()
	}
	return fmt.Sprintf("q%d", index+1)
}

func optionString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func schemaErrors(res *gojsonschema.Result, err error) []string {
	if err != nil {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return out
}
