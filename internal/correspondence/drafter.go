// Package correspondence drafts interview invitations and rejection emails for ranked candidates.
package correspondence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/hr-matcher/internal/jobmeta"
	"github.com/spigell/hr-matcher/internal/jsonrepair"
	"github.com/spigell/hr-matcher/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"google.golang.org/genai"
)

// Kind selects the email track.
type Kind string

const (
	Interview Kind = "interview"
	Rejection Kind = "rejection"
)

const (
	jobContextChars      = 4000
	interviewResumeChars = 2000
	rejectionResumeChars = 500
	truncationMarker     = "..."
	fallbackSignature    = "Best regards,\nHiring Team"
	defaultCandidateName = "Candidate"
)

//go:embed prompts/interview_system.md
var interviewSystemPrompt string

//go:embed prompts/rejection_system.md
var rejectionSystemPrompt string

//go:embed prompts/email_user.md
var emailUserPromptRaw string

var emailUserTemplate = template.Must(template.New("email_user").Parse(emailUserPromptRaw))

var markupStripper = strings.NewReplacer("*", "", "#", "")

// Email is a drafted message.
type Email struct {
	Subject string `json:"subject" mapstructure:"subject"`
	Body    string `json:"body" mapstructure:"body"`
}

// Request describes one candidate to write to.
type Request struct {
	JobText       string
	CandidateText string
	Filename      string
	Selected      bool
}

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, user string, schema *genai.Schema) (string, error)
}

type emailPromptData struct {
	Kind          Kind
	JobTitle      string
	CompanyName   string
	CandidateName string
	JobContext    string
	Resume        string
}

// Drafter writes emails with a generator when one is configured and falls back to fixed templates otherwise.
type Drafter struct {
	generator jsonGenerator
	logger    *zap.Logger
}

// NewDrafter creates a drafter. A nil generator makes every email a template.
func NewDrafter(generator jsonGenerator, logger *zap.Logger) *Drafter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drafter{generator: generator, logger: logger}
}

// Draft never fails: generator problems are logged and replaced by the template for the track.
func (d *Drafter) Draft(ctx context.Context, req Request) Email {
	kind := Rejection
	if req.Selected {
		kind = Interview
	}

	meta := jobmeta.Infer(req.JobText)
	data := emailPromptData{
		Kind:          kind,
		JobTitle:      strings.TrimSpace(strings.ReplaceAll(meta.JobTitle, "*", "")),
		CompanyName:   strings.TrimSpace(strings.ReplaceAll(meta.CompanyName, "*", "")),
		CandidateName: CandidateName(req.Filename),
	}

	log := d.logger.With(zap.String("filename", req.Filename), zap.String("kind", string(kind)))

	if d.generator == nil {
		log.Debug("no generator configured, using template email")
		return plainTemplate(data)
	}

	data.JobContext = utils.Prefix(markupStripper.Replace(req.JobText), jobContextChars)
	data.Resume = resumeExcerpt(kind, req.CandidateText)

	email, err := d.generate(ctx, data)
	if err != nil {
		log.Warn("email generation failed, using template email", zap.Error(err))
		return detailedTemplate(data)
	}

	log.Debug("email drafted")
	return email
}

func (d *Drafter) generate(ctx context.Context, data emailPromptData) (Email, error) {
	var prompt strings.Builder
	if err := emailUserTemplate.Execute(&prompt, data); err != nil {
		return Email{}, fmt.Errorf("render email prompt: %w", err)
	}

	system := rejectionSystemPrompt
	if data.Kind == Interview {
		system = interviewSystemPrompt
	}

	raw, err := d.generator.GenerateJSON(ctx, system, prompt.String(), emailSchema())
	if err != nil {
		return Email{}, err
	}

	return parseEmail(raw)
}

func parseEmail(raw string) (Email, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		if err := jsonrepair.Decode(raw, &payload); err != nil {
			return Email{}, fmt.Errorf("parse email response: %w", err)
		}
	}

	var email Email
	if err := mapstructure.WeakDecode(payload, &email); err != nil {
		return Email{}, fmt.Errorf("decode email: %w", err)
	}

	email.Subject = strings.TrimSpace(email.Subject)
	email.Body = strings.TrimSpace(email.Body)
	if email.Subject == "" || email.Body == "" {
		return Email{}, errors.New("email response is missing subject or body")
	}

	return email, nil
}

func emailSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"subject": {Type: genai.TypeString},
			"body":    {Type: genai.TypeString},
		},
		Required: []string{"subject", "body"},
	}
}

func resumeExcerpt(kind Kind, text string) string {
	if kind == Interview {
		return utils.Prefix(text, interviewResumeChars)
	}

	excerpt := utils.Prefix(text, rejectionResumeChars)
	if excerpt != text {
		excerpt += truncationMarker
	}
	return excerpt
}

// CandidateName derives a display name from an uploaded filename: "john_doe.pdf" becomes "John Doe".
func CandidateName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(strings.ReplaceAll(base, "_", " "))

	if base == "" || base == "." || base == "/" {
		return defaultCandidateName
	}

	return cases.Title(language.English).String(base)
}

// plainTemplate is used when no generator is configured at all.
func plainTemplate(data emailPromptData) Email {
	if data.Kind == Interview {
		return Email{
			Subject: fmt.Sprintf("Interview Invitation - %s", data.JobTitle),
			Body: fmt.Sprintf("Dear %s,\n\nWe are impressed with your qualifications for the %s position. "+
				"We would like to invite you for an interview.\n\nPlease share your availability for next week.\n\n%s",
				data.CandidateName, data.JobTitle, fallbackSignature),
		}
	}

	return Email{
		Subject: fmt.Sprintf("Application Status - %s", data.JobTitle),
		Body: fmt.Sprintf("Dear %s,\n\nThank you for your interest in the %s position. "+
			"We have decided to move forward with other candidates.\n\nWe wish you success in your job search.\n\n%s",
			data.CandidateName, data.JobTitle, fallbackSignature),
	}
}

// detailedTemplate is used when the generator failed for this email.
func detailedTemplate(data emailPromptData) Email {
	if data.Kind == Interview {
		return Email{
			Subject: fmt.Sprintf("Interview Invitation - %s at %s", data.JobTitle, data.CompanyName),
			Body: fmt.Sprintf("Dear %s,\n\nWe are impressed with your qualifications for the %s position at %s. "+
				"We would like to invite you for an interview.\n\nPlease share your availability for next week.\n\n%s",
				data.CandidateName, data.JobTitle, data.CompanyName, fallbackSignature),
		}
	}

	return Email{
		Subject: fmt.Sprintf("Application Status - %s at %s", data.JobTitle, data.CompanyName),
		Body: fmt.Sprintf("Dear %s,\n\nThank you for your interest in the %s position at %s. "+
			"After careful review, we have decided to move forward with other candidates.\n\n"+
			"We wish you the best in your job search.\n\n%s",
			data.CandidateName, data.JobTitle, data.CompanyName, fallbackSignature),
	}
}
