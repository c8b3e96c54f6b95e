package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devantler-tech/converge/pkg/logging"
)

const existenceInterval = 2 * time.Second

// ForService waits for a service health check to pass.
func ForService(
	ctx context.Context,
	healthCheck Probe,
	serviceName string,
	timeout, interval time.Duration,
	opts ...Option,
) error {
	return Until(ctx, healthCheck, Spec{
		Timeout:     timeout,
		Interval:    interval,
		Description: serviceName + " to be ready",
	}, opts...)
}

// ForExistence reports whether get returns a non-nil object within timeout.
// Lookup errors count as "does not exist yet"; a timeout yields false rather than an error.
func ForExistence[T any](
	ctx context.Context,
	get func(ctx context.Context) (*T, error),
	resourceName string,
	timeout time.Duration,
	opts ...Option,
) bool {
	err := Until(ctx, func(ctx context.Context) (bool, error) {
		obj, err := get(ctx)
		if err != nil {
			return false, err
		}

		return obj != nil, nil
	}, Spec{
		Timeout:     timeout,
		Interval:    min(existenceInterval, timeout),
		Description: resourceName + " to exist",
	}, opts...)

	return err == nil
}

// ForCleanup waits for every id to disappear and returns the ids that did not.
// Each leftover is logged as a warning; the caller decides whether that fails the test.
func ForCleanup(
	ctx context.Context,
	ids []string,
	exists func(ctx context.Context, id string) (bool, error),
	timeout, interval time.Duration,
	opts ...Option,
) []string {
	cfg := buildOptions(opts)
	logger := logging.ForSource(cfg.logger, logging.SourceWait)

	var leftovers []string

	for _, id := range ids {
		err := Until(ctx, func(ctx context.Context) (bool, error) {
			present, err := exists(ctx, id)
			if err != nil {
				return false, err
			}

			return !present, nil
		}, Spec{
			Timeout:     timeout,
			Interval:    interval,
			Description: fmt.Sprintf("cleanup of %s", id),
		}, opts...)
		if err == nil {
			continue
		}

		leftovers = append(leftovers, id)

		if errors.Is(err, ErrTimeout) {
			logger.WithField("resource", id).Warn("resource may not have been properly cleaned up")
		} else {
			logger.WithField("resource", id).WithError(err).Warn("cleanup verification aborted")
		}
	}

	return leftovers
}
