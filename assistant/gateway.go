package assistant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// LLM GATEWAY — Narrative answers from an external chat model
// ============================================================================
// The analyst hands over a bounded context string; the gateway wraps it into
// a chat request and returns the model's text. Backends:
//
//   OpenAIGateway  — any OpenAI-compatible endpoint (Perplexity sonar-pro)
//   GeminiGateway  — Google Gemini through the genai SDK
//
// Decorators (Retrying, CachedGateway) wrap any Gateway.
// ============================================================================

// Gateway sends one chat request and returns the model's answer.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one chat completion.
type Request struct {
	SystemPrompt string                    `json:"systemPrompt"`
	History      []engine.ConversationTurn `json:"history,omitempty"`
	UserPrompt   string                    `json:"userPrompt"`
	MaxTokens    int                       `json:"maxTokens,omitempty"` // 0 = DefaultMaxTokens
}

// DefaultMaxTokens caps the length of an answer.
const DefaultMaxTokens = 2000

// SystemPrompt frames the analyst persona for narrative answers.
const SystemPrompt = "You are Vector AI, a friendly financial data analyst assisting with actionable insights. " +
	"Analyze the provided data and deliver a detailed, confident answer in a conversational tone. " +
	"All monetary values are in Euros (€). State results definitively, e.g., 'After digging into the data, [answer].' " +
	"Include trends, growth rates (%), and percentage of total gSales where relevant. " +
	"For underperformers, identify the lowest performers with specific numbers. " +
	"For cost drivers, highlight top contributors to costs (Price Downs, Perm. Disc., Group Cost, LTA) and their impact on fGP. " +
	"Always provide 3-5 specific, actionable recommendations with clear 'why' and 'how' for each. " +
	"Use conversation history for context in follow-ups. " +
	"For requests like drafting emails to management, use a professional business tone with proper salutations and sign-offs."

// UserPrompt embeds the assembled data context under the question.
func UserPrompt(text, contextText string) string {
	return "Based on the following data, answer: " + text + "\n\n" + contextText
}

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// StatusError is a non-2xx answer from a model provider.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether the status is worth another attempt:
// rate limiting and server errors are, every other 4xx is not.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// IsRetryable classifies a backend error. Timeouts and retryable statuses
// are transient; everything else is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// normalizeAnswer trims the answer and rejects blank ones.
func normalizeAnswer(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}
