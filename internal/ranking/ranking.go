// Package ranking orders a scored batch and splits it into interview and rejection tracks.
package ranking

import (
	"math"

	"github.com/spigell/hr-matcher/internal/ai"
)

// DefaultSelectionThreshold separates interview-track from rejection-track candidates.
const DefaultSelectionThreshold = 50.0

// Batch is a ranked set of records for one job.
type Batch struct {
	Records []ai.MatchRecord
	// BestIndex is the first index holding the maximum score, or -1 for an empty batch.
	BestIndex int
	Selected  []bool
}

// Rank returns the index of the best record and the per-record selection flags.
// Ties go to the lowest index and NaN scores never win.
func Rank(records []ai.MatchRecord, threshold float64) (int, []bool) {
	best := -1
	selected := make([]bool, len(records))

	for i, record := range records {
		selected[i] = record.Score >= threshold

		if math.IsNaN(record.Score) {
			continue
		}
		if best == -1 || record.Score > records[best].Score {
			best = i
		}
	}

	if best == -1 && len(records) > 0 {
		best = 0
	}

	return best, selected
}

// NewBatch ranks records and wraps them into a Batch.
func NewBatch(records []ai.MatchRecord, threshold float64) Batch {
	best, selected := Rank(records, threshold)
	return Batch{Records: records, BestIndex: best, Selected: selected}
}

// Best returns the top record and false when the batch is empty.
func (b Batch) Best() (ai.MatchRecord, bool) {
	if b.BestIndex < 0 || b.BestIndex >= len(b.Records) {
		return ai.MatchRecord{}, false
	}
	return b.Records[b.BestIndex], true
}

// SelectedCount reports how many records passed the threshold.
func (b Batch) SelectedCount() int {
	count := 0
	for _, ok := range b.Selected {
		if ok {
			count++
		}
	}
	return count
}
