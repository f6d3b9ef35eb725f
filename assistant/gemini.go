package assistant

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// GEMINI GATEWAY — Google Gemini through the genai SDK
// ============================================================================

// DefaultGeminiModel answers questions when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures a GeminiGateway.
type GeminiConfig struct {
	APIKey  string
	Model   string // default: gemini-2.5-flash
	BaseURL string // endpoint override, mainly for tests
}

// GeminiGateway calls the Gemini API.
type GeminiGateway struct {
	client *genai.Client
	model  string
}

// NewGemini creates a gateway. The API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini gateway: api key required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGateway{client: client, model: cfg.Model}, nil
}

// Complete implements Gateway.
func (g *GeminiGateway) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := startSpan(ctx, "assistant.gemini.complete", g.model)
	defer span.End()

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens(req)),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, geminiContents(req), config)
	if err != nil {
		err = classifyGeminiError(err)
		recordError(span, err)
		return "", err
	}

	answer, err := normalizeAnswer(result.Text())
	if err != nil {
		recordError(span, err)
		return "", err
	}
	return answer, nil
}

func geminiContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.Content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if turn.Role == engine.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.UserPrompt, genai.RoleUser))
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: "gemini", Code: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &StatusError{Provider: "gemini", Code: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
