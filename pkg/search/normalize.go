package search

import (
	"strings"
	"unicode/utf8"
)

// punctuation is stripped before splitting a question into keywords.
var punctuation = strings.NewReplacer(
	"?", "",
	".", "",
	",", "",
	"!", "",
	";", "",
	":", "",
)

// stopWords are question verbs, pronouns and the product names themselves:
// they appear in nearly every question and only dilute the search.
var stopWords = map[string]struct{}{
	"how": {}, "do": {}, "does": {}, "did": {}, "i": {}, "can": {}, "could": {},
	"would": {}, "should": {}, "you": {}, "please": {}, "show": {}, "me": {},
	"the": {}, "a": {}, "an": {}, "in": {}, "to": {}, "for": {}, "with": {},
	"using": {}, "use": {}, "compute": {}, "calculate": {}, "create": {},
	"make": {}, "get": {}, "find": {}, "my": {}, "vadalog": {}, "prometheux": {},
}

// minTermLength is the shortest keyword kept, in characters.
const minTermLength = 3

// Normalize reduces a natural-language question to its key technical terms,
// e.g. "How do I compute an average?" becomes "average". When every word is
// filtered out it returns the lowercased question without punctuation, and
// when that is empty too, the raw input. It never returns "" for non-empty
// input.
func Normalize(raw string) string {
	cleaned := punctuation.Replace(strings.ToLower(raw))

	var terms []string
	for _, w := range strings.Fields(cleaned) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if utf8.RuneCountInString(w) < minTermLength {
			continue
		}
		terms = append(terms, w)
	}

	if len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	if cleaned != "" {
		return cleaned
	}
	return raw
}
