package search

import (
	"regexp"
	"strings"
)

// Term caps applied when the full query yields too few hits. The engine
// re-runs retrieval with progressively smaller queries before giving up.
var degradedTermCaps = []int{8, 4}

// tokenPattern extracts, in priority order: ratios (3:2, 1/2), decimals,
// alphanumeric compounds (ph-7, covid-19), bare alphanumeric words, and
// CJK word runs.
var tokenPattern = regexp.MustCompile(
	`[0-9]+(?:\.[0-9]+)?[:/][0-9]+(?:\.[0-9]+)?` +
		`|[0-9]+\.[0-9]+` +
		`|[A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)+` +
		`|[A-Za-z0-9]+` +
		`|[\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}ー々]+`,
)

// reservedOperators are tsquery boolean keywords that must never survive
// tokenization, regardless of casing in the source text.
var reservedOperators = map[string]struct{}{
	"or": {}, "and": {}, "not": {}, "near": {},
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "by": {}, "from": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"which": {}, "what": {}, "who": {}, "when": {}, "where": {}, "why": {},
	"how": {}, "do": {}, "does": {}, "did": {}, "can": {}, "may": {},
	"will": {}, "would": {}, "should": {}, "about": {}, "into": {},
	"than": {}, "then": {}, "there": {}, "their": {}, "they": {},
	"following": {}, "most": {}, "least": {}, "true": {}, "false": {},
	"correct": {}, "incorrect": {}, "statement": {}, "statements": {},
	"regarding": {}, "best": {}, "describes": {},
}

// Tokenize normalizes raw question text (including inline choice text)
// into a deduplicated, order-preserving sequence of lowercase search
// terms, capped at limit. Stopwords and reserved boolean-operator
// keywords are dropped.
func Tokenize(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	raw := tokenPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(raw))
	terms := make([]string, 0, min(len(raw), limit))

	for _, tok := range raw {
		term := strings.ToLower(tok)
		if _, ok := stopwords[term]; ok {
			continue
		}
		if _, ok := reservedOperators[term]; ok {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}

		seen[term] = struct{}{}
		terms = append(terms, term)
		if len(terms) == limit {
			break
		}
	}

	return terms
}
