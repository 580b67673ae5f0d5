package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/jsonrepair"
	"github.com/spigell/hr-matcher/internal/logger"
	"github.com/spigell/hr-matcher/internal/skills"
	"github.com/spigell/hr-matcher/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrResultCount is returned when the model does not produce exactly one record per candidate.
var ErrResultCount = errors.New("result count does not match candidate count")

const (
	// DefaultMaxResumeChars is the resume prefix length sent to the model.
	DefaultMaxResumeChars = 6000

	defaultMaxLogLength = 200
	maxScore            = 100
)

var requiredRecordFields = []string{"score", "missing_skills", "remarks"}

//go:embed prompts/matching_system.md
var matchingSystemPrompt string

//go:embed prompts/matching_user.md
var matchingUserPromptRaw string

var matchingUserTemplate = template.Must(template.New("matching_user").Funcs(template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}).Parse(matchingUserPromptRaw))

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, user string) (string, error)
	GenerateJSON(ctx context.Context, system, user string, schema *genai.Schema) (string, error)
	Model() string
}

// MatcherOptions tunes how a Matcher builds requests and reads responses.
type MatcherOptions struct {
	// MaxResumeChars caps each resume to a prefix of this many characters.
	MaxResumeChars int
	// StructuredOutput requests schema-constrained JSON instead of free text.
	StructuredOutput bool
	MaxLogLength     int
}

// Matcher scores a whole candidate batch with a single Gemini request.
type Matcher struct {
	generator contentGenerator
	extractor *skills.Extractor
	opts      MatcherOptions
	logger    *zap.Logger
}

type matchingPromptData struct {
	JobText        string
	RequiredSkills []string
	Candidates     []ai.Candidate
}

func NewMatcher(generator contentGenerator, extractor *skills.Extractor, log *zap.Logger, opts MatcherOptions) *Matcher {
	if opts.MaxResumeChars <= 0 {
		opts.MaxResumeChars = DefaultMaxResumeChars
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		extractor: extractor,
		opts:      opts,
		logger:    logger.WithCommonFields(log, ProviderName, generator.Model()),
	}
}

// Match implements ai.Matcher. Any transport, parsing or validation problem fails the whole batch.
func (m *Matcher) Match(ctx context.Context, jobText string, candidates []ai.Candidate) ([]ai.MatchRecord, error) {
	if len(candidates) == 0 {
		return []ai.MatchRecord{}, nil
	}

	prompt, err := m.buildPrompt(jobText, candidates)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini match request",
		zap.Int("candidates", len(candidates)),
		zap.Bool("structured_output", m.opts.StructuredOutput),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.opts.MaxLogLength)),
	)

	var raw string
	if m.opts.StructuredOutput {
		raw, err = m.generator.GenerateJSON(ctx, matchingSystemPrompt, prompt, recordsSchema())
	} else {
		raw, err = m.generator.GenerateContent(ctx, matchingSystemPrompt, prompt)
	}
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini match response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.opts.MaxLogLength)),
	)

	records, err := parseRecords(raw)
	if err != nil {
		return nil, err
	}

	if len(records) != len(candidates) {
		return nil, fmt.Errorf("%w: got %d records for %d candidates", ErrResultCount, len(records), len(candidates))
	}

	return ai.Reconcile(candidates, records), nil
}

func (m *Matcher) buildPrompt(jobText string, candidates []ai.Candidate) (string, error) {
	truncated := make([]ai.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		truncated = append(truncated, ai.Candidate{
			Filename: candidate.Filename,
			Text:     utils.Prefix(candidate.Text, m.opts.MaxResumeChars),
		})
	}

	data := matchingPromptData{
		JobText:        strings.TrimSpace(jobText),
		RequiredSkills: m.extractor.Extract(jobText),
		Candidates:     truncated,
	}

	var b strings.Builder
	if err := matchingUserTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render matching prompt: %w", err)
	}

	return b.String(), nil
}

func recordsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"filename": {
					Type:        genai.TypeString,
					Description: "Candidate filename exactly as given.",
				},
				"score": {
					Type:        genai.TypeNumber,
					Description: "Fit score between 0 and 100.",
				},
				"missing_skills": {
					Type:        genai.TypeArray,
					Description: "Required skills the candidate does not show.",
					Items:       &genai.Schema{Type: genai.TypeString},
				},
				"remarks": {
					Type:        genai.TypeString,
					Description: "Short assessment of strengths and gaps.",
				},
			},
			Required: []string{"filename", "score", "missing_skills", "remarks"},
		},
	}
}

// parseRecords reads strict JSON first and falls back to the repaired text.
func parseRecords(raw string) ([]ai.MatchRecord, error) {
	var payload any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		if err := jsonrepair.Decode(raw, &payload); err != nil {
			return nil, fmt.Errorf("parse gemini response: %w", err)
		}
		// The repaired array can be a list nested in a single record.
		if list, ok := payload.([]any); ok && !isObjectList(list) {
			var object map[string]any
			if jsonrepair.DecodeObject(raw, &object) == nil {
				payload = object
			}
		}
	}

	items, err := recordItems(payload)
	if err != nil {
		return nil, err
	}

	records := make([]ai.MatchRecord, 0, len(items))
	for i, item := range items {
		record, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// recordItems accepts a bare array, an object wrapping one array, or a single record object.
func recordItems(payload any) ([]any, error) {
	switch val := payload.(type) {
	case []any:
		return val, nil
	case map[string]any:
		var wrapped []any
		arrays := 0
		for _, v := range val {
			if list, ok := v.([]any); ok && isObjectList(list) {
				wrapped = list
				arrays++
			}
		}
		if arrays == 1 {
			return wrapped, nil
		}
		return []any{val}, nil
	default:
		return nil, fmt.Errorf("unexpected gemini response type %T", payload)
	}
}

func decodeRecord(item any) (ai.MatchRecord, error) {
	fields, ok := item.(map[string]any)
	if !ok {
		return ai.MatchRecord{}, fmt.Errorf("expected object, got %T", item)
	}

	for _, key := range requiredRecordFields {
		if fields[key] == nil {
			return ai.MatchRecord{}, fmt.Errorf("missing field %q", key)
		}
	}

	score, err := scoreValue(fields["score"])
	if err != nil {
		return ai.MatchRecord{}, err
	}
	if _, ok := fields["remarks"].(string); !ok {
		return ai.MatchRecord{}, fmt.Errorf("remarks: expected string, got %T", fields["remarks"])
	}
	if !isStringList(fields["missing_skills"]) {
		return ai.MatchRecord{}, fmt.Errorf("missing_skills: expected list of strings, got %v", fields["missing_skills"])
	}

	normalized := maps.Clone(fields)
	normalized["score"] = score

	var record ai.MatchRecord
	if err := mapstructure.Decode(normalized, &record); err != nil {
		return ai.MatchRecord{}, fmt.Errorf("decode record: %w", err)
	}

	if math.IsNaN(record.Score) || math.IsInf(record.Score, 0) {
		return ai.MatchRecord{}, fmt.Errorf("invalid score %v", record.Score)
	}
	record.Score = min(max(record.Score, 0), maxScore)
	record.Remarks = strings.TrimSpace(record.Remarks)
	if record.MissingSkills == nil {
		record.MissingSkills = []string{}
	}

	return record, nil
}

// scoreValue accepts a JSON number or a string holding one.
func scoreValue(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		score, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("score: %q is not a number", val)
		}
		return score, nil
	default:
		return 0, fmt.Errorf("score: expected number, got %T", v)
	}
}

func isStringList(v any) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

func isObjectList(list []any) bool {
	for _, v := range list {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return len(list) > 0
}
