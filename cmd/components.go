package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/hr-matcher/internal/ai/gemini"
	"github.com/spigell/hr-matcher/internal/correspondence"
	"github.com/spigell/hr-matcher/internal/extract"
	"github.com/spigell/hr-matcher/internal/jobdesc"
	"github.com/spigell/hr-matcher/internal/logger"
	"github.com/spigell/hr-matcher/internal/recruit"
	"github.com/spigell/hr-matcher/internal/secrets"
	"github.com/spigell/hr-matcher/internal/skills"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// components is everything a command needs to serve matching requests.
type components struct {
	service   *recruit.Service
	writer    *jobdesc.Writer
	extractor *extract.Extractor
}

func newLogger(output string) (*zap.Logger, error) {
	return logger.New(logger.Config{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: output,
	})
}

func buildComponents(ctx context.Context, config *Config, log *zap.Logger) (*components, error) {
	if config == nil || config.AI == nil || config.Matching == nil {
		return nil, fmt.Errorf("config is incomplete")
	}

	extractor := skills.NewExtractor(newVocabulary(config.Skills))

	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		return nil, err
	}

	deps := recruit.Deps{
		Extractor: extractor,
		Logger:    log,
	}

	var (
		drafter *correspondence.Drafter
		writer  *jobdesc.Writer
	)
	// A nil *gemini.Generator must not reach the interfaces below as a typed nil.
	if generator != nil {
		deps.Matcher = gemini.NewMatcher(generator, extractor, log, gemini.MatcherOptions{
			MaxResumeChars:   config.Matching.MaxResumeChars,
			StructuredOutput: config.AI.StructuredOutput,
			MaxLogLength:     config.AI.Gemini.MaxLogLength,
		})
		drafter = correspondence.NewDrafter(generator, log)
		writer = jobdesc.NewWriter(generator, log)
	} else {
		drafter = correspondence.NewDrafter(nil, log)
		writer = jobdesc.NewWriter(nil, log)
	}

	emails := config.Emails
	if emails == nil {
		emails = &EmailsConfig{}
	}
	if emails.Enabled {
		deps.Drafter = drafter
	}

	service, err := recruit.NewService(deps, recruit.Options{
		SelectionThreshold: config.Matching.SelectionThreshold,
		MaxCandidates:      config.Matching.MaxCandidates,
		Timeout:            config.Matching.Timeout,
		Fallback:           recruit.FallbackPolicy(strings.ToLower(strings.TrimSpace(config.Matching.Fallback))),
		EmailConcurrency:   emails.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("creating matching service: %w", err)
	}

	antiword := ""
	if config.Extract != nil {
		antiword = config.Extract.Antiword
	}

	log.Info("matching configured",
		zap.String("strategy", service.Strategy()),
		zap.Bool("emails", emails.Enabled),
		zap.Int("vocabulary_size", extractor.Vocabulary().Len()),
	)

	return &components{
		service:   service,
		writer:    writer,
		extractor: extract.New(log, extract.WithAntiword(antiword)),
	}, nil
}

// newGenerator returns nil without an error when AI is disabled.
func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Generator, error) {
	if !cfg.Enabled {
		log.Info("ai is disabled, using deterministic scoring and template emails")
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.ProviderName {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.enabled: false)", err)
	}

	genLogger := log.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	return gemini.NewGenerator(ctx, gemini.Config{
		APIKey:      apiKey,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
		MaxRetries:  cfg.Gemini.MaxRetries,
	}, genLogger)
}

func newVocabulary(cfg *SkillsConfig) *skills.Vocabulary {
	if cfg == nil {
		return skills.DefaultVocabulary()
	}

	base := skills.DefaultTerms
	if len(cfg.Vocabulary) > 0 {
		base = cfg.Vocabulary
	}
	return skills.NewVocabulary(base, cfg.Extra)
}
