// Package retry wraps fallible operations with a bounded exponential backoff.
//
// Run is the higher-order equivalent of a retry decorator: it takes the operation
// as a value, invokes it until it succeeds or the attempts in the backoff.Spec are
// used up, and then returns the last error exactly as the operation produced it so
// callers can keep matching on the underlying failure.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/devantler-tech/converge/pkg/backoff"
	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// Operation is a fallible call producing a value.
type Operation[T any] func(ctx context.Context) (T, error)

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type options struct {
	logger    logrus.FieldLogger
	name      string
	sleeper   Sleeper
	retryable func(error) bool
}

// Option customises a single Run or Do call.
type Option func(*options)

// WithLogger sets the logger used for attempt warnings.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithName labels log lines with the wrapped operation's name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSleeper replaces the backoff sleep.
func WithSleeper(sleeper Sleeper) Option {
	return func(o *options) {
		o.sleeper = sleeper
	}
}

// WithRetryIf retries only errors for which retryable returns true. Any other
// error is returned unchanged at once. By default every error is retried.
func WithRetryIf(retryable func(error) bool) Option {
	return func(o *options) {
		o.retryable = retryable
	}
}

// WithClock sleeps on the given clock instead of the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.sleeper = ClockSleeper(clk)
	}
}

// ClockSleeper returns a Sleeper backed by clk.
func ClockSleeper(clk clock.Clock) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		if d <= 0 {
			return ctx.Err()
		}

		timer := clk.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C():
			return nil
		}
	}
}

// Run invokes op until it succeeds or spec.MaxAttempts attempts have failed.
//
// The first successful result is returned immediately. After the final failed
// attempt the operation's last error is returned unchanged. If ctx is cancelled
// while waiting between attempts, the returned error matches both ctx.Err() and
// the last operation error.
func Run[T any](ctx context.Context, spec backoff.Spec, op Operation[T], opts ...Option) (T, error) {
	var zero T

	err := spec.Validate()
	if err != nil {
		return zero, err
	}

	cfg := options{
		name:    "operation",
		sleeper: ClockSleeper(clock.RealClock{}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.ForSource(cfg.logger, logging.SourceRetry).WithField("operation", cfg.name)
	schedule := spec.Schedule()

	var lastErr error

	for attempt := 1; attempt <= spec.MaxAttempts; attempt++ {
		result, opErr := op(ctx)
		if opErr == nil {
			if attempt > 1 {
				logger.WithField("attempt", attempt).Info("operation succeeded after retry")
			}

			return result, nil
		}

		lastErr = opErr

		if cfg.retryable != nil && !cfg.retryable(opErr) {
			logger.WithField("attempt", attempt).WithError(opErr).Debug("error is not retryable")

			return zero, opErr
		}

		if attempt == spec.MaxAttempts {
			break
		}

		delay := schedule.Next()

		logger.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": spec.MaxAttempts,
			"delay":        delay,
		}).WithError(opErr).Warn("attempt failed, retrying")

		sleepErr := cfg.sleeper(ctx, delay)
		if sleepErr != nil {
			return zero, fmt.Errorf("retry %s aborted after attempt %d: %w (last error: %w)",
				cfg.name, attempt, sleepErr, lastErr)
		}
	}

	logger.WithField("max_attempts", spec.MaxAttempts).
		WithError(lastErr).
		Error("operation failed after all attempts")

	return zero, lastErr
}

// Do is Run for operations without a result.
func Do(ctx context.Context, spec backoff.Spec, op func(ctx context.Context) error, opts ...Option) error {
	_, err := Run(ctx, spec, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)

	return err
}
