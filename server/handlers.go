package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/store"
)

// ============================================================================
// PAYLOADS
// ============================================================================

type chatRequest struct {
	Query               string                    `json:"query"`
	ConversationHistory []engine.ConversationTurn `json:"conversation_history"`
	Filters             chatFilters               `json:"filters"`
}

// chatFilters pin the question to one year, month or business.
type chatFilters struct {
	Year     looseString `json:"year"`
	Month    looseString `json:"month"`
	Business looseString `json:"business"`
}

// insightsRequest is the dashboard's insights modal payload.
type insightsRequest struct {
	Message             string                    `json:"message"`
	ChartTitle          string                    `json:"chart_title"`
	Context             insightsContext           `json:"context"`
	SessionID           string                    `json:"session_id"`
	ConversationHistory []engine.ConversationTurn `json:"conversation_history"`
}

type insightsContext struct {
	Year               looseString   `json:"year"`
	SelectedYears      []looseString `json:"selectedYears"`
	SelectedMonths     []looseString `json:"selectedMonths"`
	Business           looseString   `json:"business"`
	SelectedBusinesses []looseString `json:"selectedBusinesses"`
}

// presets takes the single value or the first selected one.
func (ic insightsContext) presets() engine.Presets {
	return buildPresets(
		firstNonEmpty(ic.Year, ic.SelectedYears...),
		firstNonEmpty("", ic.SelectedMonths...),
		firstNonEmpty(ic.Business, ic.SelectedBusinesses...),
	)
}

func (f chatFilters) presets() engine.Presets {
	return buildPresets(f.Year, f.Month, f.Business)
}

func buildPresets(year, month, business looseString) engine.Presets {
	var p engine.Presets
	if y, err := strconv.Atoi(strings.TrimSpace(string(year))); err == nil && y > 0 {
		p.Year = y
	}
	if m := strings.TrimSpace(string(month)); m != "" {
		p.Month = engine.CanonicalMonth(m)
	}
	p.Business = strings.TrimSpace(string(business))
	return p
}

func firstNonEmpty(v looseString, rest ...looseString) looseString {
	if strings.TrimSpace(string(v)) != "" {
		return v
	}
	for _, r := range rest {
		if strings.TrimSpace(string(r)) != "" {
			return r
		}
	}
	return ""
}

// looseString accepts a JSON string, number or null.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected a string or number, got %s", b)
	}
	*s = looseString(num.String())
	return nil
}

type chatResponse struct {
	ID           string                `json:"id"`
	Response     string                `json:"response"`
	ResponseHTML string                `json:"response_html"`
	Timestamp    string                `json:"timestamp"`
	Context      string                `json:"context"`
	Summary      string                `json:"summary,omitempty"`
	SessionID    string                `json:"session_id,omitempty"`
	Charts       []*engine.ChartConfig `json:"charts"`
	Data         chatData              `json:"data"`
}

type chatData struct {
	PivotTable   []map[string]any   `json:"pivot_table"`
	Columns      []string           `json:"columns"`
	Table        *engine.TableData  `json:"table"`
	Query        engine.ParsedQuery `json:"query"`
	Filters      engine.Filters     `json:"filters"`
	IsTrendQuery bool               `json:"is_trend_query"`
	IsLoserQuery bool               `json:"is_loser_query"`
	IsFollowUp   bool               `json:"is_follow_up"`
	TotalRows    int                `json:"total_rows"`
}

// ============================================================================
// QUESTION HANDLERS
// ============================================================================

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.ask(c, question{
		text:    req.Query,
		turns:   req.ConversationHistory,
		presets: req.Filters.presets(),
	})
}

func (s *Server) insightsChat(c *gin.Context) {
	var req insightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.ask(c, question{
		text:      req.Message,
		turns:     req.ConversationHistory,
		presets:   req.Context.presets(),
		title:     req.ChartTitle,
		sessionID: req.SessionID,
	})
}

type question struct {
	text      string
	turns     []engine.ConversationTurn
	presets   engine.Presets
	title     string
	sessionID string
}

// ask runs one question end to end: analysis, then the narrative answer.
func (s *Server) ask(c *gin.Context, q question) {
	q.text = strings.TrimSpace(q.text)
	if q.text == "" {
		abortError(c, http.StatusBadRequest, "query is required")
		return
	}
	for _, t := range q.turns {
		if t.Role != engine.RoleUser && t.Role != engine.RoleAssistant {
			abortError(c, http.StatusBadRequest, fmt.Sprintf("conversation role %q must be user or assistant", t.Role))
			return
		}
	}

	snap, err := s.cache.Snapshot()
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	analysis, err := s.analyst.Analyze(ctx, q.text, snap.View(), q.turns, q.presets)
	if err != nil {
		s.fail(c, err)
		return
	}

	title := q.title
	if title == "" {
		title = q.text
	}
	table := engine.BuildPivotTable(analysis.Pivot, title)

	answer := fallbackAnswer(analysis.Summary, analysis.FilteredRowCount, table)
	if s.gateway != nil {
		answer, err = s.gateway.Complete(ctx, s.analyst.AnswerRequest(q.text, analysis, q.turns))
		if err != nil {
			s.fail(c, fmt.Errorf("failed to get answer: %w", err))
			return
		}
	}

	html, err := renderMarkdown(answer)
	if err != nil {
		s.logger.Warn("⚠️ Pulse Server: markdown rendering failed", zap.Error(err))
	}

	charts := []*engine.ChartConfig{}
	if chart := engine.BuildPivotChart(analysis.Pivot, title); chart != nil {
		charts = append(charts, chart)
	}

	c.JSON(http.StatusOK, chatResponse{
		ID:           analysis.ID,
		Response:     answer,
		ResponseHTML: html,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		Context:      analysis.ContextText,
		Summary:      analysis.Summary,
		SessionID:    q.sessionID,
		Charts:       charts,
		Data: chatData{
			PivotTable:   analysis.Pivot.Records(),
			Columns:      analysis.Pivot.Columns(),
			Table:        table,
			Query:        analysis.Query,
			Filters:      analysis.Query.Filters(),
			IsTrendQuery: analysis.Query.IsTrend,
			IsLoserQuery: analysis.Query.IsLowestRanking,
			IsFollowUp:   analysis.FollowUp,
			TotalRows:    analysis.FilteredRowCount,
		},
	})
}

// ============================================================================
// DATA HANDLERS
// ============================================================================

func (s *Server) health(c *gin.Context) {
	st := s.cache.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"version":    s.version,
		"timestamp":  s.now().UTC().Format(time.RFC3339),
		"dataLoaded": st.Loaded,
		"llm":        s.gateway != nil,
	})
}

// withSnapshot runs fn against the current snapshot or answers 503.
func (s *Server) withSnapshot(c *gin.Context, fn func(*store.Snapshot)) {
	snap, err := s.cache.Snapshot()
	if err != nil {
		s.fail(c, err)
		return
	}
	fn(snap)
}

func (s *Server) filterOptions(c *gin.Context) {
	s.withSnapshot(c, func(snap *store.Snapshot) {
		c.JSON(http.StatusOK, engine.BuildFilterOptions(snap.View()))
	})
}

func (s *Server) dataSummary(c *gin.Context) {
	s.withSnapshot(c, func(snap *store.Snapshot) {
		c.JSON(http.StatusOK, engine.Summarize(snap.View()))
	})
}

func (s *Server) schema(c *gin.Context) {
	s.withSnapshot(c, func(snap *store.Snapshot) {
		if snap.Schema == nil {
			abortError(c, http.StatusNotFound, "snapshot has no discovered schema")
			return
		}
		c.JSON(http.StatusOK, snap.Schema)
	})
}

func (s *Server) executiveOverview(c *gin.Context) {
	filters := engine.Filters{Dimensions: map[engine.Dimension][]string{}}
	for param, dim := range map[string]engine.Dimension{
		"years":      engine.Year,
		"months":     engine.Month,
		"businesses": engine.Business,
		"channels":   engine.Channel,
	} {
		if vals := splitList(c.Query(param)); len(vals) > 0 {
			filters.Dimensions[dim] = vals
		}
	}

	s.withSnapshot(c, func(snap *store.Snapshot) {
		ov, ok := engine.ExecutiveOverview(snap.View(), filters)
		if !ok {
			abortError(c, http.StatusNotFound, "no data for the selected filters")
			return
		}
		c.JSON(http.StatusOK, ov)
	})
}

func (s *Server) customerAnalysis(c *gin.Context) {
	s.withSnapshot(c, func(snap *store.Snapshot) {
		c.JSON(http.StatusOK, engine.AnalyzeCustomers(snap.View()))
	})
}

func (s *Server) brandAnalysis(c *gin.Context) {
	s.withSnapshot(c, func(snap *store.Snapshot) {
		c.JSON(http.StatusOK, engine.AnalyzeBrands(snap.View()))
	})
}

func (s *Server) categoryAnalysis(c *gin.Context) {
	s.withSnapshot(c, func(snap *store.Snapshot) {
		c.JSON(http.StatusOK, engine.AnalyzeCategories(snap.View()))
	})
}

func (s *Server) reload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	if _, err := s.cache.Reload(ctx); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":  err.Error(),
			"status": s.cache.Status(),
		})
		return
	}
	c.JSON(http.StatusOK, s.cache.Status())
}

func (s *Server) syncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Status())
}

// splitList parses "a, b,,c" into [a b c].
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
