package search

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// QueryMode selects how search terms are compiled into a tsquery. The mode
// is a fixed configuration choice, never inferred per query.
type QueryMode string

const (
	// QueryModeWebsearch compiles terms as websearch-style free text
	// (websearch_to_tsquery).
	QueryModeWebsearch QueryMode = "websearch"
	// QueryModePlain compiles terms as an AND of all terms
	// (plainto_tsquery).
	QueryModePlain QueryMode = "plain"
	// QueryModeBoolean compiles terms as an explicit OR of quoted terms
	// (to_tsquery).
	QueryModeBoolean QueryMode = "boolean"
)

// Valid reports whether m is a recognized query mode.
func (m QueryMode) Valid() bool {
	switch m {
	case QueryModeWebsearch, QueryModePlain, QueryModeBoolean:
		return true
	}
	return false
}

// tsqueryFunc returns the Postgres function that parses queries built in
// this mode.
func (m QueryMode) tsqueryFunc() string {
	switch m {
	case QueryModePlain:
		return "plainto_tsquery"
	case QueryModeBoolean:
		return "to_tsquery"
	default:
		return "websearch_to_tsquery"
	}
}

// querySyntaxChars are characters with operator or grouping meaning in
// tsquery input. Terms containing any of them are quoted so they cannot
// be misinterpreted.
const querySyntaxChars = "&|!():*'\"<>\\"

// BuildQuery compiles an ordered term list into a backend query string
// for the given mode. Returns an empty string when no terms remain.
func BuildQuery(terms []string, mode QueryMode) string {
	if len(terms) == 0 {
		return ""
	}

	switch mode {
	case QueryModeBoolean:
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = escapeTerm(t)
		}
		return strings.Join(quoted, " | ")
	default:
		cleaned := make([]string, 0, len(terms))
		for _, t := range terms {
			if c := stripSyntax(t); c != "" {
				cleaned = append(cleaned, c)
			}
		}
		return strings.Join(cleaned, " ")
	}
}

// escapeTerm quotes a term for to_tsquery when it is purely numeric,
// a single character, or carries query-syntax metacharacters. Quoting
// prevents numeric and short terms from parsing as operators or weights.
func escapeTerm(term string) string {
	if needsQuoting(term) {
		escaped := strings.ReplaceAll(term, `\`, ``)
		escaped = strings.ReplaceAll(escaped, `'`, `''`)
		return fmt.Sprintf("'%s'", escaped)
	}
	return term
}

func needsQuoting(term string) bool {
	if utf8.RuneCountInString(term) <= 1 {
		return true
	}
	if strings.ContainsAny(term, querySyntaxChars) {
		return true
	}
	return isNumeric(term)
}

func isNumeric(term string) bool {
	for _, r := range term {
		if (r < '0' || r > '9') && r != '.' && r != ':' && r != '/' {
			return false
		}
	}
	return true
}

// stripSyntax removes query-syntax characters from free-text terms passed
// to websearch_to_tsquery and plainto_tsquery.
func stripSyntax(term string) string {
	if !strings.ContainsAny(term, querySyntaxChars) {
		return term
	}

	var b strings.Builder
	b.Grow(len(term))
	for _, r := range term {
		if !strings.ContainsRune(querySyntaxChars, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
