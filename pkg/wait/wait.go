package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/devantler-tech/converge/pkg/retry"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// Probe reports whether a condition currently holds.
type Probe func(ctx context.Context) (bool, error)

// Spec bounds a single wait.
type Spec struct {
	// Timeout is the total time allowed. Must be > 0.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// Interval is the pause between checks. Must be > 0.
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	// Description names the awaited condition in logs and errors.
	Description string `json:"description,omitempty" mapstructure:"description"`
}

// Validate reports whether the spec can be waited on.
func (s Spec) Validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidSpec, s.Timeout)
	}

	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidSpec, s.Interval)
	}

	return nil
}

// WithDescription returns a copy of the spec describing a different condition.
func (s Spec) WithDescription(description string) Spec {
	s.Description = description

	return s
}

func (s Spec) description() string {
	if s.Description == "" {
		return "condition"
	}

	return s.Description
}

type options struct {
	logger logrus.FieldLogger
	clock  clock.Clock
}

// Option customises a wait.
type Option func(*options)

// WithLogger sets the logger for progress and timeout lines.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock measures elapsed time and sleeps on clk.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func buildOptions(opts []Option) options {
	cfg := options{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// Until polls probe every spec.Interval until it returns true or spec.Timeout elapses.
//
// The first check happens immediately. Elapsed time is compared with the timeout
// before every check, and the final sleep is clipped to the time remaining, so a
// probe that never holds fails at the deadline and not a full interval later.
// Probe errors are logged at debug level and treated as "not yet".
// Cancelling ctx ends the wait with the context's error.
func Until(ctx context.Context, probe Probe, spec Spec, opts ...Option) error {
	err := spec.Validate()
	if err != nil {
		return err
	}

	cfg := buildOptions(opts)
	description := spec.description()
	logger := logging.ForSource(cfg.logger, logging.SourceWait).WithField("description", description)

	start := cfg.clock.Now()
	checks := 0

	var lastErr error

	for {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return fmt.Errorf("waiting for %s: %w", description, ctxErr)
		}

		elapsed := cfg.clock.Since(start)
		if elapsed >= spec.Timeout {
			return timeout(logger, spec, description, elapsed, lastErr)
		}

		checks++

		done, probeErr := probe(ctx)
		if probeErr != nil {
			lastErr = probeErr
			logger.WithField("check", checks).WithError(probeErr).Debug("condition check failed")
		}

		if done && probeErr == nil {
			logger.WithFields(logrus.Fields{
				"check":   checks,
				"elapsed": cfg.clock.Since(start),
			}).Infof("✓ %s - condition met", description)

			return nil
		}

		remaining := spec.Timeout - cfg.clock.Since(start)
		if remaining <= 0 {
			return timeout(logger, spec, description, cfg.clock.Since(start), lastErr)
		}

		sleepErr := retry.ClockSleeper(cfg.clock)(ctx, min(spec.Interval, remaining))
		if sleepErr != nil {
			return fmt.Errorf("waiting for %s: %w", description, sleepErr)
		}
	}
}

// --- internals ---

func timeout(
	logger logrus.FieldLogger,
	spec Spec,
	description string,
	elapsed time.Duration,
	lastErr error,
) error {
	logger.WithField("elapsed", elapsed).Errorf("✗ %s - timeout after %s", description, spec.Timeout)

	return &TimeoutError{
		Description: description,
		Timeout:     spec.Timeout,
		Elapsed:     elapsed,
		LastErr:     lastErr,
	}
}
