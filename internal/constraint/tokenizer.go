package constraint

import (
	"strings"
	"unicode"
)

// stopwords excluded from canonical tags. Function words carry no constraint
// meaning and only inflate overlap counts; short tokens are filtered by
// length before this list applies.
var stopwords = map[string]bool{
	"about": true, "also": true, "been": true, "does": true, "from": true,
	"have": true, "into": true, "must": true, "over": true, "shall": true,
	"should": true, "that": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "what": true,
	"when": true, "which": true, "will": true, "with": true, "would": true,
	"your": true,
}

// minTagLen drops connective short words (the, for, app, and so on) from
// canonical tags without needing an exhaustive stopword list.
const minTagLen = 4

// splitWords lowercases and splits on any non-alphanumeric rune.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stem collapses trivial plurals so "integration" matches "integrations".
// Anything smarter belongs behind TextOverlapMatcher, not here.
func stem(token string) string {
	if len(token) > minTagLen && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return token[:len(token)-1]
	}
	return token
}

// Tokenize derives canonical tags from text: lowercase alphanumeric tokens,
// short words and stopwords removed, trivial plurals collapsed,
// first-occurrence order preserved. Deterministic for a given input, which
// the merger's idempotence guarantee relies on.
func Tokenize(text string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, w := range splitWords(text) {
		if len(w) < minTagLen || stopwords[w] {
			continue
		}
		w = stem(w)
		if seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// TokenSet returns the canonical tags of text as a set.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokenize(text) {
		set[t] = true
	}
	return set
}

// rawTokenSet keeps every word, unstemmed. Duplicate detection during
// pinning compares whole phrasings, where even short words like "use"
// are evidence of restatement.
func rawTokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range splitWords(text) {
		set[w] = true
	}
	return set
}

// TextOverlapMatcher abstracts the lexical-overlap heuristics used by the
// reconciliation stage and the validation engine. The token implementation
// cannot distinguish a restatement from a recommendation or a follow-up
// question from a reopened decision; isolating it here lets a semantic
// matcher replace it without touching the pipeline structure.
type TextOverlapMatcher interface {
	// OverlapCount returns the size of the raw word-set intersection of a
	// and b.
	OverlapCount(a, b string) int

	// TagOverlap returns how many of the given canonical tags appear in the
	// text's canonical token set.
	TagOverlap(text string, tags []string) int

	// Jaccard returns intersection/union of the two canonical token sets,
	// 0 when both are empty.
	Jaccard(a, b string) float64
}

// TokenMatcher is the lexical TextOverlapMatcher implementation.
type TokenMatcher struct{}

// NewTokenMatcher returns the default lexical matcher.
func NewTokenMatcher() TokenMatcher { return TokenMatcher{} }

func (TokenMatcher) OverlapCount(a, b string) int {
	sa := rawTokenSet(a)
	count := 0
	for t := range rawTokenSet(b) {
		if sa[t] {
			count++
		}
	}
	return count
}

func (TokenMatcher) TagOverlap(text string, tags []string) int {
	set := TokenSet(text)
	count := 0
	for _, tag := range tags {
		if set[tag] {
			count++
		}
	}
	return count
}

func (TokenMatcher) Jaccard(a, b string) float64 {
	sa, sb := TokenSet(a), TokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sb {
		if sa[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}
