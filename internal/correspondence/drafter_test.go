package correspondence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"
)

type stubGenerator struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
	calls      int
}

func (s *stubGenerator) GenerateJSON(_ context.Context, system, prompt string, _ *genai.Schema) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastPrompt = prompt
	return s.response, s.err
}

const testJob = "# **Senior Go Engineer**\n**Acme Corp**\n\n## Overview\nBuild distributed systems."

func TestCandidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		expect   string
	}{
		{filename: "john_doe.pdf", expect: "John Doe"},
		{filename: "uploads/JANE_SMITH.docx", expect: "Jane Smith"},
		{filename: `C:\resumes\ali_khan.doc`, expect: "Ali Khan"},
		{filename: "", expect: "Candidate"},
		{filename: ".pdf", expect: "Candidate"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			if got := CandidateName(tt.filename); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestDraftWithoutGenerator(t *testing.T) {
	drafter := NewDrafter(nil, nil)

	interview := drafter.Draft(context.Background(), Request{JobText: testJob, Filename: "john_doe.pdf", Selected: true})
	if interview.Subject != "Interview Invitation - Senior Go Engineer" {
		t.Fatalf("unexpected interview subject: %q", interview.Subject)
	}
	if !strings.HasPrefix(interview.Body, "Dear John Doe,") {
		t.Fatalf("unexpected interview body: %q", interview.Body)
	}

	rejection := drafter.Draft(context.Background(), Request{JobText: "", Filename: "bob.txt"})
	if rejection.Subject != "Application Status - Position" {
		t.Fatalf("unexpected rejection subject: %q", rejection.Subject)
	}
	if !strings.Contains(rejection.Body, "move forward with other candidates") {
		t.Fatalf("unexpected rejection body: %q", rejection.Body)
	}
}

func TestDraftWithGenerator(t *testing.T) {
	stub := &stubGenerator{response: `{"subject": "Interview Invitation - Senior Go Engineer Position at Acme Corp", "body": "Dear John Doe,\n\nWelcome."}`}
	drafter := NewDrafter(stub, zap.NewNop())

	resume := strings.Repeat("r", 2500)
	email := drafter.Draft(context.Background(), Request{
		JobText:       testJob,
		CandidateText: resume,
		Filename:      "john_doe.pdf",
		Selected:      true,
	})

	if email.Subject != "Interview Invitation - Senior Go Engineer Position at Acme Corp" {
		t.Fatalf("unexpected subject: %q", email.Subject)
	}
	if stub.lastSystem != interviewSystemPrompt {
		t.Fatalf("expected interview system prompt")
	}

	for _, want := range []string{"- Title: Senior Go Engineer", "- Company: Acme Corp", "- Candidate: John Doe", "Build distributed systems."} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, stub.lastPrompt)
		}
	}
	if strings.ContainsAny(stub.lastPrompt[strings.Index(stub.lastPrompt, "[Job description]"):strings.Index(stub.lastPrompt, "[Candidate resume]")], "*#") {
		t.Fatalf("expected markup to be stripped from job context")
	}
	if strings.Contains(stub.lastPrompt, strings.Repeat("r", interviewResumeChars+1)) {
		t.Fatalf("expected interview resume excerpt to be capped")
	}
}

func TestDraftRejectionExcerpt(t *testing.T) {
	stub := &stubGenerator{response: `{"subject": "Application Status Update", "body": "Dear Bob,"}`}
	drafter := NewDrafter(stub, zap.NewNop())

	drafter.Draft(context.Background(), Request{JobText: testJob, CandidateText: strings.Repeat("r", 600), Filename: "bob.txt"})

	if stub.lastSystem != rejectionSystemPrompt {
		t.Fatalf("expected rejection system prompt")
	}
	if !strings.Contains(stub.lastPrompt, strings.Repeat("r", rejectionResumeChars)+"...") {
		t.Fatalf("expected truncated rejection excerpt with marker")
	}
	if strings.Contains(stub.lastPrompt, strings.Repeat("r", rejectionResumeChars+1)) {
		t.Fatalf("expected rejection excerpt to be capped")
	}
}

func TestDraftFallsBackOnGeneratorProblems(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		selected bool
		subject  string
	}{
		{
			name:     "generator error",
			err:      errors.New("unavailable"),
			selected: true,
			subject:  "Interview Invitation - Senior Go Engineer at Acme Corp",
		},
		{
			name:     "missing body",
			response: `{"subject": "Hi"}`,
			subject:  "Application Status - Senior Go Engineer at Acme Corp",
		},
		{
			name:     "not json",
			response: "Dear candidate, sorry.",
			subject:  "Application Status - Senior Go Engineer at Acme Corp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.WarnLevel)
			stub := &stubGenerator{response: tt.response, err: tt.err}
			drafter := NewDrafter(stub, zap.New(core))

			email := drafter.Draft(context.Background(), Request{JobText: testJob, Filename: "john_doe.pdf", Selected: tt.selected})
			if email.Subject != tt.subject {
				t.Fatalf("expected subject %q, got %q", tt.subject, email.Subject)
			}
			if !strings.HasPrefix(email.Body, "Dear John Doe,") {
				t.Fatalf("unexpected body: %q", email.Body)
			}
			if observed.Len() != 1 {
				t.Fatalf("expected one warning, got %d", observed.Len())
			}
		})
	}
}

func TestParseEmailRepairsFencedOutput(t *testing.T) {
	email, err := parseEmail("```json\n{\"subject\": \"Hello\", \"body\": \"Dear Ann,\",}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.Subject != "Hello" || email.Body != "Dear Ann," {
		t.Fatalf("unexpected email: %+v", email)
	}
}
