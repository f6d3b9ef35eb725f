package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher reloads a Cache on a cron schedule ("0 */6 * * *", "@every 1h").
type Refresher struct {
	cache    *Cache
	schedule cron.Schedule
	spec     string
	cron     *cron.Cron
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRefresher validates spec. Each reload gets timeout (0 = 5m).
func NewRefresher(cache *Cache, spec string, timeout time.Duration, logger *zap.Logger) (*Refresher, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		cache:    cache,
		schedule: sched,
		spec:     spec,
		cron:     cron.New(),
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Next returns the next reload time after t.
func (r *Refresher) Next(t time.Time) time.Time { return r.schedule.Next(t) }

// Start schedules reloads until ctx is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	r.cron.Schedule(r.schedule, cron.FuncJob(func() { r.refresh(ctx) }))
	r.cron.Start()
	r.logger.Info("🔁 Pulse Store: refresher started",
		zap.String("schedule", r.spec),
		zap.Time("next", r.Next(time.Now())))

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
}

// Stop halts scheduling and waits for a running reload to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) refresh(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()
	if _, err := r.cache.Reload(ctx); err != nil {
		r.logger.Warn("⚠️ Pulse Store: scheduled reload failed, keeping previous snapshot", zap.Error(err))
	}
}
