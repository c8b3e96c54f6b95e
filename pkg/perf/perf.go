// Package perf measures wall-clock durations of named operations and asserts bounds on them.
//
// It is an observation utility: unknown or unfinished metrics read as zero
// instead of failing, and only AssertPerformance turns a measurement into an error.
package perf

import (
	"fmt"
	"sync"
	"time"

	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// Metric is one named measurement. End is zero while the metric is in flight.
type Metric struct {
	Name     string
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Finished reports whether the metric has an end time.
func (m Metric) Finished() bool {
	return !m.End.IsZero()
}

// Tracker stores metrics by name.
type Tracker struct {
	mu      sync.Mutex
	metrics map[string]*Metric
	clock   clock.PassiveClock
	logger  logrus.FieldLogger
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used to timestamp metrics.
func WithClock(clk clock.PassiveClock) Option {
	return func(t *Tracker) {
		t.clock = clk
	}
}

// WithLogger sets the logger used by scoped timers.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Tracker) {
		t.logger = logging.ForSource(logger, logging.SourcePerf)
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	tracker := &Tracker{
		metrics: make(map[string]*Metric),
		clock:   clock.RealClock{},
		logger:  logging.ForSource(nil, logging.SourcePerf),
	}

	for _, opt := range opts {
		opt(tracker)
	}

	return tracker
}

// StartTimer starts (or restarts) the metric called name.
func (t *Tracker) StartTimer(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics[name] = &Metric{Name: name, Start: t.clock.Now()}
}

// EndTimer finishes the metric called name. Unknown names are ignored.
func (t *Tracker) EndTimer(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	metric, ok := t.metrics[name]
	if !ok {
		return
	}

	metric.End = t.clock.Now()
	metric.Duration = metric.End.Sub(metric.Start)
}

// Record stores an externally measured duration under name.
func (t *Tracker) Record(name string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	end := t.clock.Now()
	t.metrics[name] = &Metric{Name: name, Start: end.Add(-duration), End: end, Duration: duration}
}

// Duration returns the finished duration of name, or zero for unknown or in-flight metrics.
func (t *Tracker) Duration(name string) time.Duration {
	metric, ok := t.Metric(name)
	if !ok || !metric.Finished() {
		return 0
	}

	return metric.Duration
}

// Metric returns a copy of the metric called name.
func (t *Tracker) Metric(name string) (Metric, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	metric, ok := t.metrics[name]
	if !ok {
		return Metric{}, false
	}

	return *metric, true
}

// AssertPerformance fails when the duration of name exceeds maxDuration.
// A duration equal to the bound passes.
func (t *Tracker) AssertPerformance(name string, maxDuration time.Duration) error {
	duration := t.Duration(name)
	if duration > maxDuration {
		return &ViolationError{Name: name, Duration: duration, Max: maxDuration}
	}

	return nil
}

// Summary returns the duration of every metric, zero for in-flight ones.
func (t *Tracker) Summary() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := make(map[string]time.Duration, len(t.metrics))
	for name, metric := range t.metrics {
		if metric.Finished() {
			summary[name] = metric.Duration
		} else {
			summary[name] = 0
		}
	}

	return summary
}

// ViolationError reports a measured duration above its bound.
type ViolationError struct {
	Name     string
	Duration time.Duration
	Max      time.Duration
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("performance requirement failed: %s took %s, expected <= %s", e.Name, e.Duration, e.Max)
}

// Is reports ErrPerformanceViolation as a match.
func (e *ViolationError) Is(target error) bool {
	return target == ErrPerformanceViolation
}
