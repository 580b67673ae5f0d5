// Package recruit runs a full matching request: intake, scoring, ranking and correspondence.
package recruit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/correspondence"
	"github.com/spigell/hr-matcher/internal/intake"
	"github.com/spigell/hr-matcher/internal/jobmeta"
	"github.com/spigell/hr-matcher/internal/logger"
	"github.com/spigell/hr-matcher/internal/ranking"
	"github.com/spigell/hr-matcher/internal/scoring"
	"github.com/spigell/hr-matcher/internal/skills"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyJobDescription is returned when the job text is blank.
	ErrEmptyJobDescription = errors.New("job description is empty")
	// ErrInvalidFallback is returned for an unknown fallback policy.
	ErrInvalidFallback = errors.New("unknown fallback policy")

	errBatchShape = errors.New("matcher returned a batch of the wrong size")
)

// FallbackPolicy selects what replaces a failed matcher call.
type FallbackPolicy string

const (
	FallbackUniform       FallbackPolicy = "uniform"
	FallbackDeterministic FallbackPolicy = "deterministic"
)

// Strategy values reported with every result.
const (
	StrategyAI                    = "ai"
	StrategyDeterministic         = "deterministic"
	StrategyFallbackUniform       = "fallback_uniform"
	StrategyFallbackDeterministic = "fallback_deterministic"
)

const (
	defaultTimeout          = 60 * time.Second
	defaultEmailConcurrency = 4
)

// Options holds the matching policy values. A zero SelectionThreshold, MaxCandidates, Fallback or
// EmailConcurrency takes the value from DefaultOptions; a zero Timeout disables the deadline.
type Options struct {
	SelectionThreshold float64
	MaxCandidates      int
	Timeout            time.Duration
	Fallback           FallbackPolicy
	EmailConcurrency   int
}

// DefaultOptions returns the stock policy.
func DefaultOptions() Options {
	return Options{
		SelectionThreshold: ranking.DefaultSelectionThreshold,
		MaxCandidates:      intake.DefaultMaxCandidates,
		Timeout:            defaultTimeout,
		Fallback:           FallbackUniform,
		EmailConcurrency:   defaultEmailConcurrency,
	}
}

type emailDrafter interface {
	Draft(ctx context.Context, req correspondence.Request) correspondence.Email
}

// Deps are the collaborators of a Service. A nil Matcher makes the deterministic scorer the
// primary strategy; a nil Drafter disables emails.
type Deps struct {
	Matcher   ai.Matcher
	Extractor *skills.Extractor
	Drafter   emailDrafter
	Logger    *zap.Logger
}

// CandidateResult is one ranked candidate.
type CandidateResult struct {
	ai.MatchRecord
	Email      *correspondence.Email `json:"email,omitempty"`
	IsSelected bool                  `json:"is_selected"`
}

// Result is the ranked batch for one job.
type Result struct {
	JobText string `json:"jd_text"`
	jobmeta.Metadata
	RequiredSkills []string          `json:"required_skills"`
	Candidates     []CandidateResult `json:"candidates"`
	// BestIndex is -1 when there are no candidates.
	BestIndex int    `json:"best_index"`
	Strategy  string `json:"strategy,omitempty"`
}

// Best returns the top candidate and false for an empty result.
func (r *Result) Best() (CandidateResult, bool) {
	if r == nil || r.BestIndex < 0 || r.BestIndex >= len(r.Candidates) {
		return CandidateResult{}, false
	}
	return r.Candidates[r.BestIndex], true
}

// Service matches candidate batches against job descriptions.
type Service struct {
	matcher   ai.Matcher
	strategy  string
	scorer    *scoring.Scorer
	extractor *skills.Extractor
	drafter   emailDrafter
	opts      Options
	logger    *zap.Logger
}

// NewService wires a Service.
func NewService(deps Deps, opts Options) (*Service, error) {
	if deps.Extractor == nil {
		deps.Extractor = skills.NewExtractor(skills.DefaultVocabulary())
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	switch opts.Fallback {
	case "":
		opts.Fallback = FallbackUniform
	case FallbackUniform, FallbackDeterministic:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFallback, opts.Fallback)
	}
	if opts.SelectionThreshold <= 0 {
		opts.SelectionThreshold = ranking.DefaultSelectionThreshold
	}
	if opts.EmailConcurrency <= 0 {
		opts.EmailConcurrency = defaultEmailConcurrency
	}

	scorer := scoring.NewScorer(deps.Extractor)
	s := &Service{
		matcher:   deps.Matcher,
		strategy:  StrategyAI,
		scorer:    scorer,
		extractor: deps.Extractor,
		drafter:   deps.Drafter,
		opts:      opts,
		logger:    deps.Logger,
	}
	if s.matcher == nil {
		s.matcher = scorer
		s.strategy = StrategyDeterministic
	}

	return s, nil
}

// Strategy names the primary matching strategy.
func (s *Service) Strategy() string {
	return s.strategy
}

// Match scores, ranks and writes to every candidate. Matcher failures never surface: they are
// logged and replaced by the configured fallback batch.
func (s *Service) Match(ctx context.Context, jobText string, candidates []ai.Candidate) (*Result, error) {
	if strings.TrimSpace(jobText) == "" {
		return nil, ErrEmptyJobDescription
	}

	batch, err := intake.Run(ctx,
		&intake.Config{MaxCandidates: s.opts.MaxCandidates},
		intake.Deps{Logger: s.logger},
		intake.DefaultSteps(),
		candidates,
	)
	if err != nil {
		return nil, fmt.Errorf("candidate intake: %w", err)
	}

	required := s.extractor.Extract(jobText)
	if required == nil {
		required = []string{}
	}

	result := &Result{
		JobText:        jobText,
		Metadata:       jobmeta.Infer(jobText),
		RequiredSkills: required,
		Candidates:     []CandidateResult{},
		BestIndex:      -1,
	}
	if len(batch) == 0 {
		s.logger.Info("no candidates to match")
		return result, nil
	}

	records, strategy := s.score(ctx, jobText, batch, required)
	ranked := ranking.NewBatch(records, s.opts.SelectionThreshold)
	emails := s.draftEmails(ctx, jobText, batch, ranked)

	for i, record := range ranked.Records {
		result.Candidates = append(result.Candidates, CandidateResult{
			MatchRecord: record,
			Email:       emails[i],
			IsSelected:  ranked.Selected[i],
		})
	}
	result.BestIndex = ranked.BestIndex
	result.Strategy = strategy

	log := logger.WithStrategy(s.logger, strategy)
	if best, ok := ranked.Best(); ok {
		log.Info("candidates ranked",
			zap.Int("candidates", len(ranked.Records)),
			zap.Int("selected", ranked.SelectedCount()),
			zap.String("best_filename", best.Filename),
			zap.Float64("best_score", best.Score),
		)
	}

	return result, nil
}

func (s *Service) score(ctx context.Context, jobText string, candidates []ai.Candidate, required []string) ([]ai.MatchRecord, string) {
	matchCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		matchCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	records, err := s.matcher.Match(matchCtx, jobText, candidates)
	if err == nil && len(records) != len(candidates) {
		err = fmt.Errorf("%w: got %d records for %d candidates", errBatchShape, len(records), len(candidates))
	}
	if err == nil {
		return ai.Reconcile(candidates, records), s.strategy
	}

	s.logger.Warn("matching failed, using fallback batch",
		zap.String("fallback", string(s.opts.Fallback)),
		zap.Strings("filenames", ai.Filenames(candidates)),
		zap.Error(err),
	)

	if s.opts.Fallback == FallbackDeterministic {
		return s.scorer.ScoreCandidates(jobText, candidates), StrategyFallbackDeterministic
	}
	return ai.FallbackBatch(candidates, required), StrategyFallbackUniform
}

func (s *Service) draftEmails(ctx context.Context, jobText string, candidates []ai.Candidate, batch ranking.Batch) []*correspondence.Email {
	emails := make([]*correspondence.Email, len(candidates))
	if s.drafter == nil {
		return emails
	}

	var g errgroup.Group
	g.SetLimit(s.opts.EmailConcurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			email := s.drafter.Draft(ctx, correspondence.Request{
				JobText:       jobText,
				CandidateText: candidate.Text,
				Filename:      candidate.Filename,
				Selected:      batch.Selected[i],
			})
			emails[i] = &email
			return nil
		})
	}
	_ = g.Wait()

	return emails
}
