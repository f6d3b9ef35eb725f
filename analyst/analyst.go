package analyst

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spektr-org/pulse/assistant"
	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/translator"
)

// ============================================================================
// ANALYST — Question → ParsedQuery → PivotResult → context text
// ============================================================================
// Analyze is synchronous and deterministic for a fixed snapshot, text and
// translator. It never calls the narrative LLM; callers pass the resulting
// context to an assistant.Gateway themselves (see AnswerRequest).
// ============================================================================

// ErrNoData is returned when Analyze is called without a view.
var ErrNoData = errors.New("no fact data loaded")

// Analysis is everything computed for one question.
type Analysis struct {
	ID               string             `json:"id"`
	ContextText      string             `json:"contextText"`
	Pivot            engine.PivotResult `json:"pivot"`
	Query            engine.ParsedQuery `json:"query"`
	FilteredRowCount int                `json:"filteredRowCount"`
	FollowUp         bool               `json:"followUp"`
	Summary          string             `json:"summary,omitempty"`
}

// Analyst wires the interpreter, engine, follow-up detector and assembler.
type Analyst struct {
	translator translator.Translator
	detector   *FollowUpDetector
	assembler  ContextAssembler
	engineOpts []engine.Option
	logger     *zap.Logger
}

// Option configures an Analyst.
type Option func(*Analyst)

// WithTranslator replaces the keyword interpreter.
func WithTranslator(t translator.Translator) Option {
	return func(a *Analyst) {
		if t != nil {
			a.translator = t
		}
	}
}

// WithKeyword sets the keyword tables used by the default interpreter and
// the follow-up detector.
func WithKeyword(k *translator.Keyword) Option {
	return func(a *Analyst) {
		if k != nil {
			a.translator = k
			a.detector = NewFollowUpDetector(k)
		}
	}
}

// WithMaxRows caps the rows of the context table.
func WithMaxRows(n int) Option {
	return func(a *Analyst) { a.assembler.MaxRows = n }
}

// WithMaxChars caps the context text length.
func WithMaxChars(n int) Option {
	return func(a *Analyst) { a.assembler.MaxChars = n }
}

// WithHistoryTurns sets how many turns a follow-up context carries.
func WithHistoryTurns(n int) Option {
	return func(a *Analyst) { a.assembler.HistoryTurns = n }
}

// WithEngineOptions passes options to engine.Execute.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(a *Analyst) { a.engineOpts = append(a.engineOpts, opts...) }
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyst) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Analyst. Without options it reads questions with the
// default keyword tables.
func New(opts ...Option) *Analyst {
	k := translator.NewKeyword()
	a := &Analyst{
		translator: k,
		detector:   NewFollowUpDetector(k),
		assembler:  DefaultContextAssembler(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze interprets text, merges presets, aggregates view and assembles the
// context. An empty result is data (FilteredRowCount 0), not an error.
func (a *Analyst) Analyze(ctx context.Context, text string, view engine.RecordView, turns []engine.ConversationTurn, presets engine.Presets) (Analysis, error) {
	if view == nil {
		return Analysis{}, ErrNoData
	}
	start := time.Now()

	q, err := a.translator.Interpret(ctx, text)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to interpret question: %w", err)
	}
	if !presets.IsEmpty() {
		q = q.WithPresets(presets)
	}

	comp := engine.Execute(q, view, a.engineOpts...)
	followUp := a.detector.IsFollowUp(text, turns)

	analysis := Analysis{
		ID:               uuid.NewString(),
		ContextText:      a.assembler.Assemble(text, comp.Pivot, turns, followUp),
		Pivot:            comp.Pivot,
		Query:            q,
		FilteredRowCount: comp.FilteredRowCount,
		FollowUp:         followUp,
		Summary:          summarize(q, comp.Pivot),
	}

	a.logger.Info("📊 Pulse Analyst: analyzed",
		zap.String("id", analysis.ID),
		zap.Int("filteredRows", analysis.FilteredRowCount),
		zap.Int("pivotRows", len(comp.Pivot.Rows)),
		zap.Bool("followUp", followUp),
		zap.Duration("took", time.Since(start)))

	return analysis, nil
}

// summarize picks the friendly digest that fits the question.
func summarize(q engine.ParsedQuery, p engine.PivotResult) string {
	if q.IsCostDrivers {
		if s, ok := engine.CostDriverSummary(p, q.Year); ok {
			return s
		}
	}
	if s, ok := engine.TopBusinessSummary(p, q.Year); ok && !q.IsTrend {
		return s
	}
	return ""
}

// AnswerRequest builds the narrative LLM request for an analysis. History
// carries the same last turns a follow-up context would.
func (a *Analyst) AnswerRequest(text string, analysis Analysis, turns []engine.ConversationTurn) assistant.Request {
	return assistant.Request{
		SystemPrompt: assistant.SystemPrompt,
		History:      lastTurns(turns, a.assembler.HistoryTurns),
		UserPrompt:   assistant.UserPrompt(text, analysis.ContextText),
	}
}
