package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spektr-org/pulse/analyst"
	"github.com/spektr-org/pulse/assistant"
	"github.com/spektr-org/pulse/store"
)

// ============================================================================
// SERVER — HTTP surface over the snapshot cache and the analyst
// ============================================================================
// Routes:
//   GET  /health
//   POST /api/chat                            question → answer + pivot
//   POST /api/insights/chat                   dashboard payload with presets
//   GET  /api/filter-options
//   GET  /api/data-summary
//   GET  /api/schema
//   GET  /api/analytics/executive-overview    ?years=&months=&businesses=&channels=
//   GET  /api/analytics/customer-analysis
//   GET  /api/analytics/brand-analysis
//   GET  /api/analytics/category-analysis
//   POST /api/data/reload
//   GET  /api/data/sync-status
//
// Every request reads exactly one snapshot. Errors are {"error": "..."}.
// ============================================================================

// Version is reported by /health.
const Version = "1.0.0"

// Server wires the HTTP handlers to their dependencies.
type Server struct {
	cache    *store.Cache
	analyst  *analyst.Analyst
	gateway  assistant.Gateway // nil = answers built from the summary and context
	logger   *zap.Logger
	limiter  *RateLimiter
	origins  []string
	timeout  time.Duration
	version  string
	now      func() time.Time
	handler  http.Handler
	sweeping chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithGateway enables narrative answers.
func WithGateway(gw assistant.Gateway) Option {
	return func(s *Server) { s.gateway = gw }
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit allows rps requests per second per client IP. rps <= 0
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = NewRateLimiter(rps, burst)
	}
}

// WithAllowOrigins sets the CORS origins.
func WithAllowOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithRequestTimeout bounds the work done for one question.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithVersion overrides the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithClock replaces time.Now for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server. A nil analyst gets the default keyword analyst.
func New(cache *store.Cache, an *analyst.Analyst, opts ...Option) *Server {
	if an == nil {
		an = analyst.New()
	}
	s := &Server{
		cache:   cache,
		analyst: an,
		logger:  zap.NewNop(),
		timeout: 120 * time.Second,
		version: Version,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), tracing(), accessLog(s.logger), cors(s.origins))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware())
	}
	r.NoRoute(func(c *gin.Context) {
		abortError(c, http.StatusNotFound, "not found")
	})

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.POST("/chat", s.chat)
	api.POST("/insights/chat", s.insightsChat)
	api.GET("/filter-options", s.filterOptions)
	api.GET("/data-summary", s.dataSummary)
	api.GET("/schema", s.schema)

	analytics := api.Group("/analytics")
	analytics.GET("/executive-overview", s.executiveOverview)
	analytics.GET("/customer-analysis", s.customerAnalysis)
	analytics.GET("/brand-analysis", s.brandAnalysis)
	analytics.GET("/category-analysis", s.categoryAnalysis)

	data := api.Group("/data")
	data.POST("/reload", s.reload)
	data.GET("/sync-status", s.syncStatus)

	return r
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		s.sweeping = make(chan struct{})
		go s.limiter.run(s.sweeping)
		defer close(s.sweeping)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Pulse Server: listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("🛑 Pulse Server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// ============================================================================
// ERRORS
// ============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// fail maps err onto a status and writes the JSON error.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, store.ErrNoSnapshot), errors.Is(err, analyst.ErrNoData):
		abortError(c, http.StatusServiceUnavailable, "data is not loaded yet")
	case errors.Is(err, context.DeadlineExceeded):
		abortError(c, http.StatusGatewayTimeout, err.Error())
	default:
		var status *assistant.StatusError
		if errors.As(err, &status) || errors.Is(err, assistant.ErrEmptyResponse) {
			abortError(c, http.StatusBadGateway, err.Error())
			return
		}
		abortError(c, http.StatusInternalServerError, err.Error())
	}
}
