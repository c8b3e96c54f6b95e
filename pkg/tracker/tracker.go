// Package tracker records cleanup actions for resources created during a test
// and tears them down in reverse order.
package tracker

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/sirupsen/logrus"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// CleanupFunc tears a resource down.
type CleanupFunc func(ctx context.Context) error

// Resource is a tracked artifact.
type Resource struct {
	Kind    string
	ID      string
	Cleanup CleanupFunc
}

// CleanupFailure records a cleanup that returned an error. It is diagnostic only.
type CleanupFailure struct {
	Kind string
	ID   string
	Err  error
}

// Error implements the error interface.
func (f *CleanupFailure) Error() string {
	return fmt.Sprintf("cleanup %s %s: %v", f.Kind, f.ID, f.Err)
}

// Unwrap returns the underlying cleanup error.
func (f *CleanupFailure) Unwrap() error {
	return f.Err
}

// Tracker is a stack of cleanup actions.
type Tracker struct {
	mu        sync.Mutex
	resources []Resource
	logger    logrus.FieldLogger
}

// New creates a tracker logging through logger. A nil logger discards output.
func New(logger logrus.FieldLogger) *Tracker {
	return &Tracker{logger: logging.ForSource(logger, logging.SourceTracker)}
}

// NewForTest creates a tracker whose CleanupAll runs when t finishes.
// Cleanup failures are reported with t.Logf and do not fail the test.
func NewForTest(t testing.TB, logger logrus.FieldLogger) *Tracker {
	t.Helper()

	tracker := New(logger)

	t.Cleanup(func() {
		err := tracker.CleanupAll(context.WithoutCancel(t.Context()))
		if err != nil {
			t.Logf("resource cleanup finished with failures: %v", err)
		}
	})

	return tracker
}

// Track registers a cleanup for the resource identified by kind and id.
func (t *Tracker) Track(kind, id string, cleanup CleanupFunc) {
	t.mu.Lock()
	t.resources = append(t.resources, Resource{Kind: kind, ID: id, Cleanup: cleanup})
	t.mu.Unlock()

	t.logger.WithFields(logrus.Fields{"kind": kind, "id": id}).Debugf("Tracking %s: %s", kind, id)
}

// Len returns the number of tracked resources.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.resources)
}

// Resources returns the tracked resources in registration order.
func (t *Tracker) Resources() []Resource {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.resources)
}

// CleanupAll runs every cleanup, last registered first, and empties the tracker.
//
// A failing cleanup is logged and the remaining cleanups still run. The returned
// aggregate of *CleanupFailure exists for diagnostics only; teardown is never
// cut short. Resources tracked while CleanupAll runs are left for the next call.
func (t *Tracker) CleanupAll(ctx context.Context) error {
	t.mu.Lock()
	resources := t.resources
	t.resources = nil
	t.mu.Unlock()

	t.logger.Infof("Cleaning up %d resources", len(resources))

	var failures []error

	for _, resource := range slices.Backward(resources) {
		fields := logrus.Fields{"kind": resource.Kind, "id": resource.ID}

		err := runCleanup(ctx, resource.Cleanup)
		if err != nil {
			t.logger.WithFields(fields).WithError(err).
				Warnf("Failed to cleanup %s %s", resource.Kind, resource.ID)

			failures = append(failures, &CleanupFailure{Kind: resource.Kind, ID: resource.ID, Err: err})

			continue
		}

		t.logger.WithFields(fields).Debugf("Cleaned up %s: %s", resource.Kind, resource.ID)
	}

	return utilerrors.NewAggregate(failures)
}

// runCleanup converts a panicking cleanup into an error.
//
//nolint:nonamedreturns // Named return lets the deferred recover set the error.
func runCleanup(ctx context.Context, cleanup CleanupFunc) (err error) {
	if cleanup == nil {
		return nil
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrCleanupPanicked, recovered)
		}
	}()

	return cleanup(ctx)
}
