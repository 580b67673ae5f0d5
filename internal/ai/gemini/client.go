package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spigell/hr-matcher/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// ProviderName is reported in the ai_provider log field.
	ProviderName = "gemini"

	defaultModel = "gemini-2.5-flash"

	jsonMIMEType = "application/json"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the settings for a Generator.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	// MaxRetries is the number of extra attempts made for temporary API errors.
	MaxRetries int
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models      modelsAPI
	model       string
	temperature float32
	maxRetries  int
	newBackOff  func() backoff.BackOff
	logger      *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, log), nil
}

func newGenerator(models modelsAPI, cfg Config, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Generator{
		models:      models,
		model:       model,
		temperature: cfg.Temperature,
		maxRetries:  max(cfg.MaxRetries, 0),
		newBackOff:  defaultBackOff,
		logger:      logger.WithCommonFields(log, ProviderName, model),
	}
}

// GenerateContent sends the system instruction and user message to Gemini and returns the textual response.
func (g *Generator) GenerateContent(ctx context.Context, system, user string) (string, error) {
	return g.generate(ctx, system, user, nil)
}

// GenerateJSON asks Gemini for a JSON response constrained by schema and returns the raw JSON text.
func (g *Generator) GenerateJSON(ctx context.Context, system, user string, schema *genai.Schema) (string, error) {
	if schema == nil {
		return "", errors.New("response schema is required")
	}
	return g.generate(ctx, system, user, schema)
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) generate(ctx context.Context, system, user string, schema *genai.Schema) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	user = strings.TrimSpace(user)
	if user == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if schema != nil {
		config.ResponseMIMEType = jsonMIMEType
		config.ResponseSchema = schema
	}

	attempt := 0
	operation := func() (*genai.GenerateContentResponse, error) {
		attempt++
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(user), config)
		if err == nil {
			return resp, nil
		}
		if !isTemporary(err) {
			return nil, backoff.Permanent(err)
		}

		g.logger.Warn("gemini request failed with temporary error",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxRetries+1),
			zap.Error(err),
		)
		return nil, err
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(g.newBackOff()),
		backoff.WithMaxTries(uint(g.maxRetries+1)),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// isTemporary reports whether err is worth another attempt. Quota exhaustion never is.
func isTemporary(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		return !strings.Contains(strings.ToLower(apiErr.Message), "quota")
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second
	return bo
}
