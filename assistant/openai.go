package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// OPENAI-COMPATIBLE GATEWAY — Perplexity, OpenAI, any /chat/completions API
// ============================================================================

// PerplexityBaseURL is the OpenAI-compatible Perplexity endpoint.
const PerplexityBaseURL = "https://api.perplexity.ai"

// DefaultPerplexityModel answers questions when no model is configured.
const DefaultPerplexityModel = "sonar-pro"

// OpenAIConfig configures an OpenAIGateway.
type OpenAIConfig struct {
	APIKey     string
	Model      string       // default: sonar-pro
	BaseURL    string       // default: Perplexity
	HTTPClient *http.Client // optional
}

// OpenAIGateway talks to an OpenAI-compatible chat completions endpoint.
// SDK-level retries are disabled; wrap with WithRetry instead.
type OpenAIGateway struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a gateway. The API key is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai gateway: api key required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultPerplexityModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = PerplexityBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIGateway{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Complete implements Gateway.
func (g *OpenAIGateway) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := startSpan(ctx, "assistant.openai.complete", g.model)
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(g.model),
		Messages:  openAIMessages(req),
		MaxTokens: openai.Int(int64(maxTokens(req))),
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = classifyOpenAIError(err)
		recordError(span, err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		recordError(span, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	answer, err := normalizeAnswer(completion.Choices[0].Message.Content)
	if err != nil {
		recordError(span, err)
		return "", err
	}
	return answer, nil
}

func openAIMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	for _, turn := range req.History {
		if turn.Content == "" {
			continue
		}
		if turn.Role == engine.RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(turn.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(turn.Content))
		}
	}
	return append(msgs, openai.UserMessage(req.UserPrompt))
}

// classifyOpenAIError turns SDK status errors into StatusError so the retry
// layer can tell transient from permanent failures.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{
			Provider: "openai",
			Code:     apiErr.StatusCode,
			Message:  apiErr.Message,
		}
	}
	return fmt.Errorf("openai request failed: %w", err)
}
