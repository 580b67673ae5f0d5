package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/hr-matcher/internal/ai"
	"go.uber.org/zap"
)

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type namingStep struct {
	toggle
}

// NewNaming creates a step that gives candidates without a filename a positional name.
func NewNaming() Step {
	return &namingStep{}
}

func (s *namingStep) Name() string { return "naming" }

func (s *namingStep) Validate(*Config) error { return nil }

func (s *namingStep) Apply(_ context.Context, deps Deps, candidates []ai.Candidate) ([]ai.Candidate, Stats, error) {
	var renamed []string
	for i := range candidates {
		name := strings.TrimSpace(candidates[i].Filename)
		if name == "" {
			name = fmt.Sprintf("resume_%d", i+1)
			renamed = append(renamed, name)
		}
		candidates[i].Filename = name
	}

	if len(renamed) > 0 {
		deps.Logger.Info("naming unnamed candidates", zap.Strings("names", renamed))
	}

	return candidates, Stats{Initial: len(candidates), Left: len(candidates)}, nil
}

func (s *namingStep) Status() Status {
	return Status{Name: s.Name(), Enabled: s.IsEnabled(), Reason: s.reason}
}

type emptyTextStep struct {
	toggle
}

// NewEmptyText creates a step that reports candidates whose text could not be extracted.
// They stay in the batch and score low.
func NewEmptyText() Step {
	return &emptyTextStep{}
}

func (s *emptyTextStep) Name() string { return "empty_text" }

func (s *emptyTextStep) Validate(*Config) error { return nil }

func (s *emptyTextStep) Apply(_ context.Context, deps Deps, candidates []ai.Candidate) ([]ai.Candidate, Stats, error) {
	var empty []string
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.Text) == "" {
			empty = append(empty, candidate.Filename)
		}
	}

	if len(empty) > 0 {
		deps.Logger.Warn("candidates without extractable text", zap.Strings("filenames", empty))
	}

	return candidates, Stats{Initial: len(candidates), Left: len(candidates)}, nil
}

type capStep struct {
	toggle
	limit int
}

// NewCap creates a step that keeps only the first MaxCandidates entries.
func NewCap() Step {
	return &capStep{}
}

func (s *capStep) Name() string { return "cap" }

func (s *capStep) Validate(cfg *Config) error {
	s.limit = DefaultMaxCandidates
	if cfg == nil || cfg.MaxCandidates == 0 {
		return nil
	}
	if cfg.MaxCandidates < 0 {
		return fmt.Errorf("max candidates must be positive, got %d", cfg.MaxCandidates)
	}
	s.limit = cfg.MaxCandidates
	return nil
}

func (s *capStep) Apply(_ context.Context, deps Deps, candidates []ai.Candidate) ([]ai.Candidate, Stats, error) {
	initial := len(candidates)
	if initial <= s.limit {
		return candidates, Stats{Initial: initial, Left: initial}, nil
	}

	dropped := ai.Filenames(candidates[s.limit:])
	deps.Logger.Warn("candidate batch exceeds the limit, extra resumes are ignored",
		zap.Int("limit", s.limit),
		zap.Strings("ignored", dropped),
	)

	return candidates[:s.limit], Stats{Initial: initial, Dropped: len(dropped), Left: s.limit}, nil
}

func (s *capStep) Status() Status {
	return Status{
		Name:    s.Name(),
		Enabled: s.IsEnabled(),
		Reason:  s.reason,
		Details: map[string]string{"limit": strconv.Itoa(s.limit)},
	}
}
