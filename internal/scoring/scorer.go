package scoring

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/skills"
)

const (
	noMatchRemarks  = "no key skills matched"
	maxRemarkSkills = 3
	strongInPrefix  = "strong in "
)

// Result is the deterministic evaluation of one candidate.
type Result struct {
	Score         float64
	Matched       []string
	MissingSkills []string
	Remarks       string
}

// Scorer ranks candidates by the share of required job skills found in their resume.
type Scorer struct {
	extractor *skills.Extractor
}

// NewScorer creates a new scorer instance.
func NewScorer(extractor *skills.Extractor) *Scorer {
	return &Scorer{extractor: extractor}
}

// Evaluate scores a single candidate text against the job text.
func (s *Scorer) Evaluate(jobText, candidateText string) Result {
	return evaluate(s.extractor.Extract(jobText), s.extractor.Extract(candidateText))
}

// ScoreCandidates scores every candidate against the job, preserving input order.
func (s *Scorer) ScoreCandidates(jobText string, candidates []ai.Candidate) []ai.MatchRecord {
	required := s.extractor.Extract(jobText)

	records := make([]ai.MatchRecord, 0, len(candidates))
	for _, candidate := range candidates {
		result := evaluate(required, s.extractor.Extract(candidate.Text))
		records = append(records, ai.MatchRecord{
			Filename:      candidate.Filename,
			Score:         result.Score,
			MissingSkills: result.MissingSkills,
			Remarks:       result.Remarks,
		})
	}

	return records
}

// Match implements ai.Matcher. It never fails.
func (s *Scorer) Match(_ context.Context, jobText string, candidates []ai.Candidate) ([]ai.MatchRecord, error) {
	return s.ScoreCandidates(jobText, candidates), nil
}

func evaluate(required, present []string) Result {
	presentSet := make(map[string]struct{}, len(present))
	for _, skill := range present {
		presentSet[skill] = struct{}{}
	}

	requiredSet := make(map[string]struct{}, len(required))
	matched := make([]string, 0)
	missing := make([]string, 0)
	for _, skill := range required {
		if _, dup := requiredSet[skill]; dup {
			continue
		}
		requiredSet[skill] = struct{}{}

		if _, ok := presentSet[skill]; ok {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}

	sort.Strings(matched)
	sort.Strings(missing)

	denominator := max(len(requiredSet), 1)
	score := round2(100.0 * float64(len(matched)) / float64(denominator))

	return Result{
		Score:         score,
		Matched:       matched,
		MissingSkills: missing,
		Remarks:       remarks(matched),
	}
}

func remarks(matched []string) string {
	if len(matched) == 0 {
		return noMatchRemarks
	}
	return strongInPrefix + strings.Join(matched[:min(len(matched), maxRemarkSkills)], ", ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
