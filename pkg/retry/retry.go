package retry

import (
	"context"
	"time"

	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/db"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// Policy bounds the retry loop around store calls. Only
// connection-unavailability errors are retried; everything else surfaces on
// the first attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	logg *logger.Logger
	// sleep is swapped in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy builds a Policy from config, falling back to the defaults when
// values are unset.
func NewPolicy(cfg config.RetryConfig, logg *logger.Logger) Policy {
	p := Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		logg:        logg,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	return p
}

// Do runs op, retrying with doubling backoff while the error is a
// database-unavailability error. Exhaustion wraps the last error as a
// DEPENDENCY_ERROR so callers can report "try again shortly" distinctly from
// malformed-request failures.
func (p Policy) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !db.IsUnavailable(err) {
			return err
		}

		lastErr = err
		if p.logg != nil {
			fields := map[string]any{"op": label, "attempt": attempt, "max_attempts": p.MaxAttempts}
			p.logg.Warn(p.logg.WithFields(ctx, fields), "store unavailable, retrying")
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}

	return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "store unavailable after retries").
		WithDetails(map[string]any{"op": label, "attempts": p.MaxAttempts})
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
