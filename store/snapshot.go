package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// ============================================================================
// SNAPSHOT CACHE — One immutable fact table per load
// ============================================================================
// Requests take the current *Snapshot once and use it for their lifetime.
// Reload builds a complete new snapshot and swaps the pointer; a failed
// reload keeps serving the previous snapshot.
// ============================================================================

// ErrNoSnapshot is returned before the first successful load.
var ErrNoSnapshot = errors.New("fact data not loaded")

// Snapshot is an immutable, fully loaded fact table.
type Snapshot struct {
	Rows     []engine.FactRow
	Schema   *schema.Config
	LoadedAt time.Time
	Source   string

	view engine.RecordView
}

// NewSnapshot binds rows to a view once.
func NewSnapshot(rows []engine.FactRow, sch *schema.Config, source string) *Snapshot {
	caps := engine.FullCapabilities()
	if sch != nil {
		caps = sch.Capabilities()
	}
	return &Snapshot{
		Rows:     rows,
		Schema:   sch,
		LoadedAt: time.Now().UTC(),
		Source:   source,
		view:     engine.NewFactView(rows, caps),
	}
}

// View returns the engine view over the snapshot.
func (s *Snapshot) View() engine.RecordView { return s.view }

// Status describes the last load attempt, for health and sync endpoints.
type Status struct {
	Source      string    `json:"source"`
	Loaded      bool      `json:"loaded"`
	Rows        int       `json:"rows"`
	LoadedAt    time.Time `json:"loadedAt,omitempty"`
	LastAttempt time.Time `json:"lastAttempt,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	Reloads     int       `json:"reloads"`
}

// Cache holds the current snapshot of one source.
type Cache struct {
	source  Source
	current atomic.Pointer[Snapshot]
	logger  *zap.Logger

	mu          sync.Mutex // serializes reloads and guards the status fields
	lastAttempt time.Time
	lastErr     error
	reloads     int
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates an empty cache. Call Reload to load the first snapshot.
func NewCache(src Source, opts ...CacheOption) *Cache {
	c := &Cache{source: src, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current snapshot or ErrNoSnapshot.
func (c *Cache) Snapshot() (*Snapshot, error) {
	s := c.current.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// Reload loads the source and swaps in the new snapshot.
func (c *Cache) Reload(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	c.lastAttempt = start.UTC()

	rows, sch, err := c.source.Load(ctx)
	if err != nil {
		c.lastErr = err
		c.logger.Warn("⚠️ Pulse Store: reload failed",
			zap.String("source", c.source.Describe()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load %s: %w", c.source.Describe(), err)
	}

	snap := NewSnapshot(rows, sch, c.source.Describe())
	c.current.Store(snap)
	c.lastErr = nil
	c.reloads++

	skipped := 0
	if sch != nil {
		skipped = len(sch.SkippedColumns)
	}
	c.logger.Info("📦 Pulse Store: snapshot loaded",
		zap.String("source", snap.Source),
		zap.Int("rows", len(rows)),
		zap.Int("skippedColumns", skipped),
		zap.Duration("took", time.Since(start)))
	return snap, nil
}

// Status reports the current snapshot and the last attempt.
func (c *Cache) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Source:      c.source.Describe(),
		LastAttempt: c.lastAttempt,
		Reloads:     c.reloads,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if s := c.current.Load(); s != nil {
		st.Loaded = true
		st.Rows = len(s.Rows)
		st.LoadedAt = s.LoadedAt
	}
	return st
}
