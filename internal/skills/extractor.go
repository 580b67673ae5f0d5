package skills

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extractor finds known skill terms in free text.
type Extractor struct {
	vocabulary *Vocabulary
}

// NewExtractor creates an extractor bound to the given vocabulary.
func NewExtractor(vocabulary *Vocabulary) *Extractor {
	if vocabulary == nil {
		vocabulary = NewVocabulary()
	}
	return &Extractor{vocabulary: vocabulary}
}

func (e *Extractor) Vocabulary() *Vocabulary {
	return e.vocabulary
}

// Extract returns the vocabulary terms present in text, unique and in first-occurrence order.
func (e *Extractor) Extract(text string) []string {
	seen := make(map[string]struct{})
	found := make([]string, 0)

	for _, token := range Tokenize(text) {
		if !e.vocabulary.Contains(token) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		found = append(found, token)
	}

	return found
}

// Tokenize lower-cases text and splits it on every run of characters that are not
// ASCII letters, digits, '+', '#' or '.'.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isTokenRune(r)
	})
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '#' || r == '.':
		return true
	default:
		return false
	}
}
