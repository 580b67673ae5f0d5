// Package jobdesc writes markdown job descriptions from a short structured brief.
package jobdesc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
)

//go:embed prompts/system.md
var systemPrompt string

//go:embed prompts/user.md
var userPromptRaw string

var userTemplate = template.Must(template.New("jobdesc_user").Parse(userPromptRaw))

// ErrInvalidRequest is returned for briefs that cannot produce a job description.
var ErrInvalidRequest = errors.New("invalid job description request")

// Request is the brief a job description is written from.
type Request struct {
	JobTitle        string `json:"job_title" mapstructure:"job_title"`
	YearsExperience int    `json:"years_experience" mapstructure:"years_experience"`
	MustHaveSkills  string `json:"must_have_skills" mapstructure:"must_have_skills"`
	CompanyName     string `json:"company_name" mapstructure:"company_name"`
	EmploymentType  string `json:"employment_type" mapstructure:"employment_type"`
	Industry        string `json:"industry" mapstructure:"industry"`
	Location        string `json:"location" mapstructure:"location"`
}

// Validate checks the fields a job description cannot do without.
func (r Request) Validate() error {
	if strings.TrimSpace(r.JobTitle) == "" {
		return fmt.Errorf("%w: job_title is required", ErrInvalidRequest)
	}
	if r.YearsExperience < 0 {
		return fmt.Errorf("%w: years_experience must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Skills splits the comma separated must-have list.
func (r Request) Skills() []string {
	var skills []string
	for _, skill := range strings.Split(r.MustHaveSkills, ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}
	return skills
}

type textGenerator interface {
	GenerateContent(ctx context.Context, system, user string) (string, error)
}

// Writer produces job descriptions with a generator, or from a fixed template when none is configured.
type Writer struct {
	generator textGenerator
	logger    *zap.Logger
}

func NewWriter(generator textGenerator, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{generator: generator, logger: logger}
}

// Generate returns the markdown job description. Generator failures are returned to the caller.
func (w *Writer) Generate(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	log := w.logger.With(zap.String("job_title", req.JobTitle), zap.String("company", req.CompanyName))

	if w.generator == nil {
		log.Info("no generator configured, using job description template")
		return Template(req), nil
	}

	var prompt strings.Builder
	if err := userTemplate.Execute(&prompt, req); err != nil {
		return "", fmt.Errorf("render job description prompt: %w", err)
	}

	text, err := w.generator.GenerateContent(ctx, systemPrompt, prompt.String())
	if err != nil {
		return "", fmt.Errorf("generate job description: %w", err)
	}

	text = strings.TrimSpace(text)
	log.Info("job description generated", zap.Int("length", utf8.RuneCountInString(text)))

	return text, nil
}

// Template renders the fixed job description used without a generator.
func Template(req Request) string {
	lines := []string{
		"# " + req.JobTitle,
		"**" + req.CompanyName + "**",
		"",
		fmt.Sprintf("📍 %s | 💼 %s | 🏢 %s", req.Location, req.EmploymentType, req.Industry),
		"",
		"## Overview",
		fmt.Sprintf("We are seeking a %s with %d+ years of experience to join %s. "+
			"The ideal candidate demonstrates strong ownership and collaboration across cross-functional teams.",
			req.JobTitle, req.YearsExperience, req.CompanyName),
		"",
		"## Responsibilities",
		"- Deliver high-quality work aligned with product goals",
		"- Collaborate with stakeholders to refine requirements and scope",
		"- Write clean, reliable, and testable code",
		"- Participate in code reviews and continuous improvement",
		"",
		"## Requirements",
		fmt.Sprintf("- %d+ years relevant professional experience", req.YearsExperience),
		"- Proven problem-solving and communication skills",
	}

	for _, skill := range req.Skills() {
		lines = append(lines, "- "+skill)
	}

	lines = append(lines,
		"",
		"## Nice to Have",
		"- Exposure to adjacent tools and ecosystems",
		"- Experience in high-growth environments",
		"",
		"## Benefits",
		"- Competitive compensation and benefits",
		"- Flexible work environment",
		"- Learning stipend and growth opportunities",
		"",
		"## How to Apply",
		"Please submit your resume highlighting relevant experience.",
	)

	return strings.Join(lines, "\n")
}
