package perf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ScopedTimer measures one run of an operation and records it in its Tracker.
type ScopedTimer struct {
	tracker *Tracker
	name    string
	once    sync.Once
	elapsed time.Duration
}

// Scope starts a timer for name. Call Stop on every exit path, usually via defer.
func (t *Tracker) Scope(name string) *ScopedTimer {
	t.StartTimer(name)
	t.logger.WithField("operation", name).Infof("⏱ Starting %s", name)

	return &ScopedTimer{tracker: t, name: name}
}

// Stop records the elapsed time and logs success or failure depending on err.
// Only the first call has an effect; later calls return the same duration.
func (s *ScopedTimer) Stop(err error) time.Duration {
	s.once.Do(func() {
		s.tracker.EndTimer(s.name)
		s.elapsed = s.tracker.Duration(s.name)

		logger := s.tracker.logger.WithFields(logrus.Fields{
			"operation": s.name,
			"elapsed":   s.elapsed,
		})

		if err != nil {
			logger.WithError(err).Errorf("✗ %s failed after %s", s.name, s.elapsed)

			return
		}

		logger.Infof("✓ %s completed in %s", s.name, s.elapsed)
	})

	return s.elapsed
}

// Measure runs fn inside a ScopedTimer.
// The duration is recorded on every exit path. A panic is recorded as a failure
// and re-raised; a runtime.Goexit (t.FailNow) is recorded as ErrOperationAborted.
//
//nolint:nonamedreturns // Named return lets the deferred Stop see fn's error.
func (t *Tracker) Measure(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	scope := t.Scope(name)
	completed := false

	defer func() {
		recovered := recover()

		switch {
		case recovered != nil:
			scope.Stop(fmt.Errorf("%w: %v", ErrOperationPanicked, recovered))
			panic(recovered)
		case !completed:
			scope.Stop(ErrOperationAborted)
		default:
			scope.Stop(err)
		}
	}()

	err = fn(ctx)
	completed = true

	return err
}
