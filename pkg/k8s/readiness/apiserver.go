package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/siderolabs/go-retry/retry"
	"k8s.io/client-go/kubernetes"
)

// WaitForAPIServer retries a ServerVersion request every interval until it
// succeeds or timeout elapses.
func WaitForAPIServer(
	ctx context.Context,
	clientset kubernetes.Interface,
	timeout, interval time.Duration,
) error {
	return WaitForAPIServerStable(ctx, clientset, timeout, interval, 1)
}

// WaitForAPIServerStable requires requiredSuccesses consecutive successful
// ServerVersion requests. Any failure resets the count.
func WaitForAPIServerStable(
	ctx context.Context,
	clientset kubernetes.Interface,
	timeout, interval time.Duration,
	requiredSuccesses int,
) error {
	requiredSuccesses = max(requiredSuccesses, 1)
	consecutiveSuccesses := 0

	err := retry.Constant(timeout, retry.WithUnits(interval)).
		RetryWithContext(ctx, func(_ context.Context) error {
			_, versionErr := clientset.Discovery().ServerVersion()
			if versionErr != nil {
				consecutiveSuccesses = 0

				return retry.ExpectedError(versionErr)
			}

			consecutiveSuccesses++
			if consecutiveSuccesses < requiredSuccesses {
				return retry.ExpectedError(fmt.Errorf(
					"%w: %d/%d consecutive answers",
					errNotStableYet, consecutiveSuccesses, requiredSuccesses,
				))
			}

			return nil
		})
	if err != nil {
		return fmt.Errorf("%w after %s: %w", ErrAPIServerNotReady, timeout, err)
	}

	return nil
}
