// Package intake prepares uploaded candidates for a matching run.
package intake

import (
	"context"
	"fmt"

	"github.com/spigell/hr-matcher/internal/ai"
	"go.uber.org/zap"
)

// DefaultMaxCandidates is the largest batch sent to a matcher.
const DefaultMaxCandidates = 10

// Step is a single intake stage applied to a candidate batch.
type Step interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, candidates []ai.Candidate) ([]ai.Candidate, Stats, error)
}

// Deps aggregates dependencies shared across all steps.
type Deps struct {
	Logger *zap.Logger
}

// Stats describes the result of executing a step.
type Stats struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains settings consumed by the steps.
type Config struct {
	MaxCandidates int
}

// Status represents runtime information about a step.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DefaultSteps returns the standard intake order.
func DefaultSteps() []Step {
	return []Step{NewNaming(), NewEmptyText(), NewCap()}
}

// DisableByName marks a step with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Step, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied steps sequentially and returns the resulting batch.
// The input slice is never modified.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Step, candidates []ai.Candidate) ([]ai.Candidate, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := append([]ai.Candidate(nil), candidates...)
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("intake step disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Debug("intake step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		current = next
	}

	return current, nil
}

// Describe returns status entries for the provided steps.
func Describe(steps []Step) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
