package dedup

import (
	"strings"
	"unicode"
)

// stopwords excluded from description keyword extraction. Title and venue
// tokens are kept verbatim; stopwords only dilute the semantic signal.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "our": {}, "the": {}, "this": {}, "to": {}, "with": {},
	"will": {}, "your": {},
}

// normalizeText lowercases, strips punctuation, and collapses runs of
// whitespace into single spaces.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// Punctuation acts as a separator so "rock/pop" splits cleanly.
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenize returns the normalized whitespace-separated tokens of s.
func tokenize(s string) []string {
	normalized := normalizeText(s)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

func tokenSet(tokens []string) map[string]struct{} {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// extractKeywords returns the distinct non-stopword tokens of a description,
// preserving first-seen order. Single-character tokens carry no signal and
// are dropped.
func extractKeywords(s string) []string {
	var keywords []string
	seen := make(map[string]struct{})
	for _, t := range tokenize(s) {
		if len(t) < 2 {
			continue
		}
		if _, ok := stopwords[t]; ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		keywords = append(keywords, t)
	}
	return keywords
}

// trigramSet returns the set of rune trigrams of the normalized text.
// Strings shorter than three runes form a single-element set.
func trigramSet(s string) map[string]struct{} {
	normalized := normalizeText(s)
	if normalized == "" {
		return nil
	}
	runes := []rune(normalized)
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}
	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// jaccard computes intersection-over-union of two sets. Empty sets score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
