package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys attached to matching log lines.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldStrategy = "match_strategy"
)

// WithCommonFields tags the logger with the AI provider and model. A nil logger becomes a no-op one.
func WithCommonFields(log *zap.Logger, provider, model string) *zap.Logger {
	return withValues(log, FieldProvider, provider, FieldModel, model)
}

// WithStrategy tags the logger with the strategy that produced a batch of match records.
func WithStrategy(log *zap.Logger, strategy string) *zap.Logger {
	return withValues(log, FieldStrategy, strategy)
}

// withValues attaches key/value pairs, skipping values that are blank after trimming.
func withValues(log *zap.Logger, pairs ...string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}

	var fields []zap.Field
	for i := 0; i+1 < len(pairs); i += 2 {
		if value := strings.TrimSpace(pairs[i+1]); value != "" {
			fields = append(fields, zap.String(pairs[i], value))
		}
	}
	if len(fields) == 0 {
		return log
	}

	return log.With(fields...)
}
