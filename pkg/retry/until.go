package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// PollSpec configures Until.
type PollSpec struct {
	// Attempts is the number of calls made before giving up. Must be >= 1.
	Attempts int
	// Delay is the fixed pause between calls.
	Delay time.Duration
	// Description names what is being polled for in logs and errors.
	Description string
}

// Until calls op until accept approves a result.
//
// Unlike Run, errors from op do not count as final: they are logged at debug level
// and the next attempt is made after spec.Delay. When every attempt is used up the
// returned error wraps ErrAttemptsExhausted.
func Until[T any](
	ctx context.Context,
	spec PollSpec,
	op Operation[T],
	accept func(T) bool,
	opts ...Option,
) (T, error) {
	var zero T

	if spec.Attempts < 1 {
		return zero, fmt.Errorf("%w: attempts must be at least 1, got %d", ErrInvalidPollSpec, spec.Attempts)
	}

	cfg := options{sleeper: ClockSleeper(clock.RealClock{})}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.ForSource(cfg.logger, logging.SourceRetry).WithField("description", spec.Description)

	for attempt := 1; attempt <= spec.Attempts; attempt++ {
		result, err := op(ctx)

		switch {
		case err != nil:
			logger.WithField("attempt", attempt).WithError(err).Debug("poll attempt failed")
		case accept(result):
			logger.WithField("attempt", attempt).Infof("✓ %s succeeded on attempt %d", spec.Description, attempt)

			return result, nil
		default:
			logger.WithFields(logrus.Fields{"attempt": attempt}).Debug("result not accepted yet")
		}

		if attempt < spec.Attempts {
			sleepErr := cfg.sleeper(ctx, spec.Delay)
			if sleepErr != nil {
				return zero, fmt.Errorf("poll for %s aborted: %w", spec.Description, sleepErr)
			}
		}
	}

	return zero, fmt.Errorf("%w: %s after %d attempts", ErrAttemptsExhausted, spec.Description, spec.Attempts)
}
