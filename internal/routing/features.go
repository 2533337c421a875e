package routing

import (
	"fmt"
	"regexp"
	"strings"
)

// Signals are the boolean and numeric features extracted from a prompt
type Signals struct {
	HasCodeFence              bool     `json:"has_code_fence"`
	HasCodeKeyword            bool     `json:"has_code_keyword"`
	CodeIndicators            []string `json:"code_indicators,omitempty"`
	WordCount                 int      `json:"word_count"`
	HasComplexMarkers         bool     `json:"has_complex_markers"`
	ComplexMarkers            []string `json:"complex_markers,omitempty"`
	IsSimpleGreetingOrFactoid bool     `json:"is_simple_greeting_or_factoid"`
	IsEmpty                   bool     `json:"is_empty"`
}

// HasCodeSignal reports whether any code indicator fired
func (s Signals) HasCodeSignal() bool {
	return s.HasCodeFence || s.HasCodeKeyword
}

const (
	codeFence = "```"

	// simplePromptMaxWords bounds how long a greeting or factoid can be
	simplePromptMaxWords = 8

	// multiClauseMinSeparators is how many clause breaks make a prompt multi-clause
	multiClauseMinSeparators = 3

	multiClauseMarker = "multi-clause structure"
)

type termPattern struct {
	term string
	re   *regexp.Regexp
}

type syntaxPattern struct {
	label string
	re    *regexp.Regexp
}

var (
	// Source syntax that counts as a code keyword even without a fence
	codeSyntaxPatterns = []syntaxPattern{
		{"python def", regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\(`)},
		{"go func", regexp.MustCompile(`\bfunc\s+(\(\w+\s+\*?\w+\)\s*)?\w+\s*\(`)},
		{"class declaration", regexp.MustCompile(`(?m)^\s*class\s+\w+\s*[:({]`)},
		{"#include", regexp.MustCompile(`(?m)^\s*#include\s*[<"]`)},
		{"import statement", regexp.MustCompile(`(?m)^\s*(import\s+[\w./"]+|from\s+[\w.]+\s+import\s+[\w*, ]+)\s*;?\s*$`)},
	}

	clauseSeparatorPattern = regexp.MustCompile(`(?i)[,;:]|\b(because|whereas|however|although)\b`)

	greetingPattern = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|howdy|greetings|yo|thanks|thank\s+you|good\s+(morning|afternoon|evening))\b`)

	factoidPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(what|who|when|where)\s+(is|are|was|were|did)\b`),
		regexp.MustCompile(`(?i)^\s*define\b`),
		regexp.MustCompile(`(?i)^\s*what\s+does\s+.+\s+mean\b`),
	}
)

// compileTerms builds one case-insensitive pattern per term. Terms match on
// non-word boundaries so "c++" and "c#" work, spaces match any whitespace
// run and an optional plural suffix is allowed.
func compileTerms(terms []string) ([]termPattern, error) {
	out := make([]termPattern, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		body := strings.Join(strings.Fields(regexp.QuoteMeta(term)), `\s+`)
		re, err := regexp.Compile(`(?i)(?:^|\W)` + body + `(?:e?s)?(?:\W|$)`)
		if err != nil {
			return nil, fmt.Errorf("invalid term %q: %w", term, err)
		}
		out = append(out, termPattern{term: term, re: re})
	}
	return out, nil
}

// Extractor turns prompt text into Signals using a fixed set of term lists
type Extractor struct {
	codeTerms    []termPattern
	complexTerms []termPattern
}

// NewExtractor compiles the keyword and marker lists
func NewExtractor(codeKeywords, complexMarkers []string) (*Extractor, error) {
	codeTerms, err := compileTerms(codeKeywords)
	if err != nil {
		return nil, fmt.Errorf("code keywords: %w", err)
	}
	complexTerms, err := compileTerms(complexMarkers)
	if err != nil {
		return nil, fmt.Errorf("complex markers: %w", err)
	}
	return &Extractor{codeTerms: codeTerms, complexTerms: complexTerms}, nil
}

// Extract analyses the prompt concatenated with the optional system prompt.
// The greeting/factoid check looks at the user prompt alone. An empty prompt
// yields baseline signals.
func (e *Extractor) Extract(prompt, systemPrompt string) Signals {
	if strings.TrimSpace(prompt) == "" {
		return Signals{IsEmpty: true}
	}

	text := prompt
	if strings.TrimSpace(systemPrompt) != "" {
		text = systemPrompt + "\n\n" + prompt
	}

	var s Signals
	s.WordCount = len(strings.Fields(text))

	if strings.Contains(text, codeFence) {
		s.HasCodeFence = true
		s.CodeIndicators = append(s.CodeIndicators, "code fence")
	}
	for _, p := range e.codeTerms {
		if p.re.MatchString(text) {
			s.HasCodeKeyword = true
			s.CodeIndicators = append(s.CodeIndicators, fmt.Sprintf("keyword %q", p.term))
		}
	}
	for _, p := range codeSyntaxPatterns {
		if p.re.MatchString(text) {
			s.HasCodeKeyword = true
			s.CodeIndicators = append(s.CodeIndicators, p.label)
		}
	}

	for _, p := range e.complexTerms {
		if p.re.MatchString(text) {
			s.ComplexMarkers = append(s.ComplexMarkers, p.term)
		}
	}
	if len(clauseSeparatorPattern.FindAllStringIndex(text, -1)) >= multiClauseMinSeparators {
		s.ComplexMarkers = append(s.ComplexMarkers, multiClauseMarker)
	}
	s.HasComplexMarkers = len(s.ComplexMarkers) > 0

	s.IsSimpleGreetingOrFactoid = isSimplePrompt(prompt)
	return s
}

func isSimplePrompt(prompt string) bool {
	if len(strings.Fields(prompt)) > simplePromptMaxWords {
		return false
	}
	if greetingPattern.MatchString(prompt) {
		return true
	}
	for _, re := range factoidPatterns {
		if re.MatchString(prompt) {
			return true
		}
	}
	return false
}

var defaultExtractor = mustExtractor(DefaultCodeKeywords, DefaultComplexMarkers)

func mustExtractor(code, complex []string) *Extractor {
	e, err := NewExtractor(code, complex)
	if err != nil {
		panic(err)
	}
	return e
}

// ExtractSignals runs the default extractor
func ExtractSignals(prompt, systemPrompt string) Signals {
	return defaultExtractor.Extract(prompt, systemPrompt)
}
