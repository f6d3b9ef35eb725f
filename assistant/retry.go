package assistant

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryConfig bounds how hard a gateway call is retried.
type RetryConfig struct {
	MaxTries        uint          // total attempts, first one included
	InitialInterval time.Duration // first backoff delay
	MaxInterval     time.Duration // backoff ceiling
	MaxElapsed      time.Duration // give up after this much wall time
	AttemptTimeout  time.Duration // per-attempt deadline, 0 = none
}

// DefaultRetryConfig returns sensible defaults for chat completions.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		MaxElapsed:      90 * time.Second,
		AttemptTimeout:  45 * time.Second,
	}
}

// Retrying retries transient failures of the wrapped gateway with
// exponential backoff. Permanent failures return after one attempt.
type Retrying struct {
	next   Gateway
	cfg    RetryConfig
	logger *zap.Logger
}

// WithRetry wraps next. A nil logger disables logging.
func WithRetry(next Gateway, cfg RetryConfig, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 1
	}
	return &Retrying{next: next, cfg: cfg, logger: logger}
}

// Complete implements Gateway.
func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()

		answer, err := r.next.Complete(attemptCtx, req)
		if err == nil {
			return answer, nil
		}
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		if !IsRetryable(err) {
			return "", backoff.Permanent(err)
		}
		r.logger.Warn("⚠️ Pulse Gateway: transient failure, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
		return "", err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	if r.cfg.MaxInterval > 0 {
		b.MaxInterval = r.cfg.MaxInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.cfg.MaxTries),
	}
	if r.cfg.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(r.cfg.MaxElapsed))
	}
	return backoff.Retry(ctx, op, opts...)
}

func (r *Retrying) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.AttemptTimeout)
}
