package translator

import (
	"context"

	"go.uber.org/zap"

	"github.com/spektr-org/pulse/assistant"
	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// LLM asks a chat model to translate the question and falls back to the
// keyword tables whenever the call fails or the answer does not validate.
type LLM struct {
	gateway  Completer
	schema   *schema.Config
	fallback *Keyword
	years    []int
	logger   *zap.Logger
}

// LLMOption configures an LLM translator.
type LLMOption func(*LLM)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) LLMOption {
	return func(t *LLM) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithSchema describes the snapshot's columns and sample values in the prompt.
func WithSchema(sch *schema.Config) LLMOption {
	return func(t *LLM) { t.schema = sch }
}

// WithFallback replaces the keyword translator used on failure.
func WithFallback(k *Keyword) LLMOption {
	return func(t *LLM) {
		if k != nil {
			t.fallback = k
			t.years = k.years
		}
	}
}

// NewLLM creates an LLM translator over gw.
func NewLLM(gw Completer, opts ...LLMOption) *LLM {
	t := &LLM{
		gateway:  gw,
		fallback: NewKeyword(),
		years:    DefaultYears,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interpret implements Translator. Errors are absorbed by the fallback, so
// it only returns the keyword reading in the worst case.
func (t *LLM) Interpret(ctx context.Context, text string) (engine.ParsedQuery, error) {
	t.logger.Debug("🔄 Pulse Translator: interpreting", zap.String("query", truncate(text, 80)))

	response, err := t.gateway.Complete(ctx, assistant.Request{
		SystemPrompt: BuildPrompt(t.schema, t.years),
		UserPrompt:   "USER QUERY: " + text + "\n\nRespond with valid JSON only:",
		MaxTokens:    400,
	})
	if err != nil {
		t.logger.Warn("⚠️ Pulse Translator: model call failed, using keywords", zap.Error(err))
		return t.fallback.Parse(text), nil
	}

	q, err := parseResponse(response)
	if err != nil {
		t.logger.Warn("⚠️ Pulse Translator: parse failed, using keywords", zap.Error(err))
		return t.fallback.Parse(text), nil
	}

	t.logger.Debug("✅ Pulse Translator: interpreted",
		zap.Int("metrics", len(q.Metrics)),
		zap.Int("dimensions", len(q.DimensionFilters)),
		zap.Bool("trend", q.IsTrend))
	return q, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
