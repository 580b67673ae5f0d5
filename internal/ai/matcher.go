package ai

import (
	"context"
	"slices"
)

// FallbackRemarks marks records produced without a successful analysis.
const FallbackRemarks = "Unable to analyze - API error"

// Candidate is a single resume submitted for evaluation.
type Candidate struct {
	Filename string
	Text     string
}

// MatchRecord is the evaluation of one candidate against one job.
type MatchRecord struct {
	Filename      string   `json:"filename" mapstructure:"filename"`
	Score         float64  `json:"score" mapstructure:"score"`
	MissingSkills []string `json:"missing_skills" mapstructure:"missing_skills"`
	Remarks       string   `json:"remarks" mapstructure:"remarks"`
}

// Matcher scores a batch of candidates against a job description.
// Implementations return exactly one record per candidate, in input order, or an error.
type Matcher interface {
	Match(ctx context.Context, jobText string, candidates []Candidate) ([]MatchRecord, error)
}

// FallbackBatch builds the uniform zero-score batch used when matching fails.
func FallbackBatch(candidates []Candidate, requiredSkills []string) []MatchRecord {
	records := make([]MatchRecord, 0, len(candidates))
	for _, candidate := range candidates {
		missing := slices.Clone(requiredSkills)
		if missing == nil {
			missing = []string{}
		}
		records = append(records, MatchRecord{
			Filename:      candidate.Filename,
			Score:         0,
			MissingSkills: missing,
			Remarks:       FallbackRemarks,
		})
	}
	return records
}

// Filenames returns the candidate filenames in input order.
func Filenames(candidates []Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		names = append(names, candidate.Filename)
	}
	return names
}

// Reconcile aligns records with candidates. When the record filenames are a permutation of the
// candidate filenames the records are reordered by filename, otherwise they are matched by
// position. The candidate filename always wins. len(records) must equal len(candidates).
func Reconcile(candidates []Candidate, records []MatchRecord) []MatchRecord {
	out := make([]MatchRecord, len(candidates))

	if ordered, ok := byFilename(candidates, records); ok {
		copy(out, ordered)
		return out
	}

	for i, candidate := range candidates {
		out[i] = records[i]
		out[i].Filename = candidate.Filename
	}
	return out
}

func byFilename(candidates []Candidate, records []MatchRecord) ([]MatchRecord, bool) {
	if len(candidates) != len(records) {
		return nil, false
	}

	pending := make(map[string][]int, len(records))
	for i, record := range records {
		pending[record.Filename] = append(pending[record.Filename], i)
	}

	ordered := make([]MatchRecord, 0, len(candidates))
	for _, candidate := range candidates {
		indexes := pending[candidate.Filename]
		if len(indexes) == 0 {
			return nil, false
		}
		ordered = append(ordered, records[indexes[0]])
		pending[candidate.Filename] = indexes[1:]
	}

	return ordered, true
}
