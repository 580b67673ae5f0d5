package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/jobmeta"
	"github.com/spigell/hr-matcher/internal/recruit"
	"github.com/spigell/hr-matcher/internal/secrets"
	"go.uber.org/zap"
)

func offlineConfig() *Config {
	return &Config{
		AI: &AIConfig{Enabled: false},
		Matching: &MatchingConfig{
			SelectionThreshold: 50,
			MaxCandidates:      10,
			MaxResumeChars:     6000,
			Timeout:            time.Second,
			Fallback:           "Uniform",
		},
		Skills: &SkillsConfig{Extra: []string{"Terraform"}},
		Emails: &EmailsConfig{Enabled: true, Concurrency: 2},
	}
}

func TestBuildComponentsWithoutAI(t *testing.T) {
	c, err := buildComponents(context.Background(), offlineConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.service.Strategy() != recruit.StrategyDeterministic {
		t.Fatalf("expected deterministic strategy, got %q", c.service.Strategy())
	}

	result, err := c.service.Match(context.Background(), "# Platform Engineer\nTerraform and Go", []ai.Candidate{
		{Filename: "ann.txt", Text: "terraform go"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Candidates[0].Score != 100 {
		t.Fatalf("expected extra vocabulary to count, got %+v", result.Candidates[0])
	}
	if email := result.Candidates[0].Email; email == nil || !strings.HasPrefix(email.Subject, "Interview Invitation") {
		t.Fatalf("expected template interview email, got %+v", email)
	}
}

func TestBuildComponentsRequiresAPIKey(t *testing.T) {
	cfg := offlineConfig()
	cfg.AI = &AIConfig{Enabled: true, Provider: "gemini", Gemini: &GeminiConfig{}}

	_, err := buildComponents(context.Background(), cfg, zap.NewNop())
	if !errors.Is(err, secrets.ErrNotConfigured) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestBuildComponentsRejectsUnknownProvider(t *testing.T) {
	cfg := offlineConfig()
	cfg.AI = &AIConfig{Enabled: true, Provider: "openai"}

	if _, err := buildComponents(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestNewVocabulary(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *SkillsConfig
		contains string
		missing  string
	}{
		{name: "defaults", cfg: nil, contains: "python"},
		{name: "extra on top of defaults", cfg: &SkillsConfig{Extra: []string{"Terraform"}}, contains: "terraform"},
		{name: "replaced vocabulary", cfg: &SkillsConfig{Vocabulary: []string{"cobol"}}, contains: "cobol", missing: "python"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVocabulary(tt.cfg)
			if !v.Contains(tt.contains) {
				t.Fatalf("expected %q in vocabulary", tt.contains)
			}
			if tt.missing != "" && v.Contains(tt.missing) {
				t.Fatalf("expected %q to be absent", tt.missing)
			}
		})
	}
}

func TestPrintRanking(t *testing.T) {
	result := &recruit.Result{
		Metadata:       jobmeta.Metadata{JobTitle: "Go Engineer", CompanyName: "Acme"},
		RequiredSkills: []string{"go"},
		BestIndex:      1,
		Candidates: []recruit.CandidateResult{
			{MatchRecord: ai.MatchRecord{Filename: "a.txt", Score: 10, MissingSkills: []string{"go"}, Remarks: "weak"}},
			{MatchRecord: ai.MatchRecord{Filename: "b.txt", Score: 95, Remarks: "strong"}, IsSelected: true},
		},
	}

	var buf bytes.Buffer
	if err := printRanking(&buf, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Go Engineer at Acme", "required skills: go", "2 *", "95.00", "interview", "rejection"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
