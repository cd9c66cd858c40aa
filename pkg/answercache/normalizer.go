package answercache

import (
	"sort"
	"strings"
	"unicode"
)

// Stopwords dropped during normalization. Order-insensitive token-set keys
// mean "reset password" and "password reset please" collapse to one entry.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"do": true, "does": true, "did": true, "how": true, "to": true, "i": true,
	"my": true, "me": true, "can": true, "could": true, "would": true,
	"please": true, "pls": true, "of": true, "for": true, "in": true,
	"on": true, "at": true, "what": true, "why": true, "help": true,
	"you": true, "it": true, "with": true, "and": true, "or": true,
}

// Normalize derives the canonical cache key from a question. The pipeline
// is lowercase, strip punctuation, drop stopwords, tokenize, sort tokens,
// rejoin. It is idempotent: Normalize(Normalize(q)) == Normalize(q).
func Normalize(question string) string {
	lowered := strings.ToLower(question)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, t := range tokens {
		if !stopwords[t] {
			kept = append(kept, t)
		}
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}
