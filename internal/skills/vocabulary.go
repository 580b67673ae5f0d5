package skills

import (
	"sort"
	"strings"
)

// DefaultTerms is the curated list of technology terms recognised out of the box.
var DefaultTerms = []string{
	"python", "java", "javascript", "typescript", "react", "node", "fastapi", "django", "flask",
	"aws", "gcp", "azure", "docker", "kubernetes", "sql", "nosql", "postgres", "mysql", "mongodb",
	"nlp", "ml", "ai", "pytorch", "tensorflow", "sklearn", "spacy", "transformers", "langchain",
	"llm", "genai", "huggingface", "openai", "groq", "llama", "whisper", "opencv", "computer", "vision",
	"data", "engineering", "mle", "mlops", "airflow", "kubeflow", "ray", "pandas", "numpy", "scipy",
	"c++", "c#", "go", "rust", "php", "html", "css", "tailwind", "next.js", "nextjs", "redux", "jest",
}

// Vocabulary is an immutable set of canonical lowercase skill tokens.
type Vocabulary struct {
	terms map[string]struct{}
}

// NewVocabulary builds a vocabulary from the provided terms.
// Terms are trimmed and lower-cased; empty entries are ignored.
func NewVocabulary(terms ...[]string) *Vocabulary {
	v := &Vocabulary{terms: make(map[string]struct{})}
	for _, list := range terms {
		for _, term := range list {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}
			v.terms[term] = struct{}{}
		}
	}
	return v
}

// DefaultVocabulary returns a vocabulary made of DefaultTerms.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(DefaultTerms)
}

func (v *Vocabulary) Contains(token string) bool {
	if v == nil {
		return false
	}
	_, ok := v.terms[token]
	return ok
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.terms)
}

// Terms returns the vocabulary content sorted lexicographically.
func (v *Vocabulary) Terms() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v.terms))
	for term := range v.terms {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}
