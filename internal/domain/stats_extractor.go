package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sentenceContextChars is the rune window searched on each side of a match
// when reconstructing the surrounding sentence.
const sentenceContextChars = 100

const numberWithUnit = `-?\d+(?:\.\d+)?(?:%|percent|points)?`

type statPattern struct {
	name  string
	re    *regexp.Regexp
	value func(text string, loc []int) string
}

// StatExtractor finds numeric statements in free text.
type StatExtractor struct {
	patterns []statPattern
}

// NewStatExtractor returns an extractor with the built-in patterns, applied
// in this order: percentage, range, change verb, magnitude, dollar amount.
func NewStatExtractor() *StatExtractor {
	whole := func(text string, loc []int) string { return text[loc[0]:loc[1]] }
	group := func(n int) func(string, []int) string {
		return func(text string, loc []int) string { return text[loc[2*n]:loc[2*n+1]] }
	}

	return &StatExtractor{patterns: []statPattern{
		{
			name:  "percent",
			re:    regexp.MustCompile(`-?\d+(?:\.\d+)?%`),
			value: whole,
		},
		{
			name: "range",
			re:   regexp.MustCompile(`(?i)(?:from\s+)?(` + numberWithUnit + `)\s+to\s+(` + numberWithUnit + `)`),
			value: func(text string, loc []int) string {
				return group(1)(text, loc) + " to " + group(2)(text, loc)
			},
		},
		{
			name:  "change",
			re:    regexp.MustCompile(`(?i)(?:up|down|increased?|decreased?|rose|fell|dropped?|grew)\s+(?:by\s+)?(` + numberWithUnit + `)`),
			value: group(1),
		},
		{
			name:  "magnitude",
			re:    regexp.MustCompile(`\$?\d+(?:,\d{3})*(?:\.\d+)?\s?(?:(?i:million|billion|thousand|orders|sales|customers|users|dollars)\b|[MBK]\b)`),
			value: whole,
		},
		{
			name:  "dollar",
			re:    regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d+)?(?:\s?(?:(?i:million|billion|thousand)\b|[MBK]\b))?`),
			value: whole,
		},
	}}
}

// Extract returns candidates in pattern order then match order. A sentence
// already produced by an earlier match is skipped.
func (e *StatExtractor) Extract(text string) []StatCandidate {
	var candidates []StatCandidate
	seen := make(map[string]struct{})

	for _, p := range e.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			sentence := sentenceAround(text, loc[0], loc[1])
			if _, dup := seen[sentence]; dup {
				continue
			}
			seen[sentence] = struct{}{}
			candidates = append(candidates, StatCandidate{
				Sentence:    sentence,
				RawValueStr: p.value(text, loc),
			})
		}
	}
	return candidates
}

// sentenceAround takes sentenceContextChars runes on each side of
// text[start:end] and narrows to the nearest '.' on either side. Periods of
// decimal numbers count as boundaries too.
func sentenceAround(text string, start, end int) string {
	lo, hi := start, end
	for i := 0; i < sentenceContextChars && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:lo])
		lo -= size
	}
	for i := 0; i < sentenceContextChars && hi < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[hi:])
		hi += size
	}

	from := lo
	if idx := strings.LastIndexByte(text[lo:start], '.'); idx >= 0 {
		from = lo + idx + 1
	}
	to := hi
	if idx := strings.IndexByte(text[end:hi], '.'); idx >= 0 {
		to = end + idx
	}
	return strings.TrimSpace(text[from:to])
}
