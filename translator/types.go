package translator

import (
	"context"
	"errors"

	"github.com/spektr-org/pulse/assistant"
	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// TRANSLATOR — Free-text question → ParsedQuery
// ============================================================================
// The engine only ever sees a ParsedQuery. How the question was read (keyword
// tables or an LLM) stays behind the Translator interface so either can be
// swapped without touching aggregation.
//
// Keyword — deterministic keyword tables, no I/O, never fails
// LLM     — asks a chat model for a JSON query, falls back to Keyword
// ============================================================================

// Translator turns a business question into a ParsedQuery.
type Translator interface {
	Interpret(ctx context.Context, text string) (engine.ParsedQuery, error)
}

// Completer is the slice of the LLM gateway the LLM translator needs.
// assistant.Gateway satisfies it.
type Completer interface {
	Complete(ctx context.Context, req assistant.Request) (string, error)
}

// ErrInvalidQuery is returned when a model response names columns or values
// outside the catalogue.
var ErrInvalidQuery = errors.New("invalid query")

// DefaultYears are the year literals recognized in questions.
var DefaultYears = []int{2023, 2024, 2025}
