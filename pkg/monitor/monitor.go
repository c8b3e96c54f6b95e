// Package monitor runs named background loops that keep re-evaluating a probe
// and cache the latest observed status for synchronous lookup.
//
// A Registry owns its handle table. At most one live handle exists per key,
// Stop waits for the loop to exit before the handle is removed, and start/stop
// calls on the same key are serialized.
package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
	"k8s.io/utils/keymutex"
)

// Status is the tagged result of a monitor check.
type Status string

const (
	// StatusValid means the last check succeeded and the condition held.
	StatusValid Status = "valid"
	// StatusInvalid means the last check succeeded and the condition did not hold.
	StatusInvalid Status = "invalid"
	// StatusUnknown means no check has completed or no monitor exists.
	StatusUnknown Status = "unknown"
)

// Probe evaluates the monitored condition.
type Probe func(ctx context.Context) (Status, error)

// FromBool adapts a boolean check into a Probe.
func FromBool(check func(ctx context.Context) (bool, error)) Probe {
	return func(ctx context.Context) (Status, error) {
		ok, err := check(ctx)
		if err != nil {
			return StatusUnknown, err
		}

		if ok {
			return StatusValid, nil
		}

		return StatusInvalid, nil
	}
}

// Snapshot is a point-in-time view of a handle.
type Snapshot struct {
	Key       string
	Status    Status
	LastCheck time.Time
	Checks    int
	Failures  int
	Interval  time.Duration
}

// Registry owns the background monitors.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*handle
	keys    keymutex.KeyMutex
	clock   clock.Clock
	logger  logrus.FieldLogger
}

// Option customises a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Registry) {
		r.logger = logging.ForSource(logger, logging.SourceMonitor)
	}
}

// WithClock sets the clock used for check timestamps and sleeps.
func WithClock(clk clock.Clock) Option {
	return func(r *Registry) {
		r.clock = clk
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	registry := &Registry{
		handles: make(map[string]*handle),
		keys:    keymutex.NewHashed(0),
		clock:   clock.RealClock{},
		logger:  logging.ForSource(nil, logging.SourceMonitor),
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// Start launches a loop that evaluates probe every checkInterval under key.
//
// The loop stops when Stop is called or ctx is cancelled; in the latter case
// the handle stays registered with its last status until Stop releases the key.
func (r *Registry) Start(ctx context.Context, key string, probe Probe, checkInterval time.Duration) error {
	if checkInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, checkInterval)
	}

	r.keys.LockKey(key)
	defer func() { _ = r.keys.UnlockKey(key) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyMonitoring, key)
	}

	loopCtx, cancel := context.WithCancel(ctx)

	monitorHandle := &handle{
		key:      key,
		interval: checkInterval,
		status:   StatusUnknown,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	r.handles[key] = monitorHandle

	go monitorHandle.run(loopCtx, probe, r.clock, r.logger.WithField("key", key))

	r.logger.WithFields(logrus.Fields{"key": key, "interval": checkInterval}).Debug("monitor started")

	return nil
}

// Stop cancels the monitor for key and blocks until its loop has exited.
// No status write from that loop can happen after Stop returns. A probe that
// ignores ctx cancellation keeps Stop blocked until the probe returns.
// Stopping an unknown key returns ErrNotMonitoring.
func (r *Registry) Stop(key string) error {
	r.keys.LockKey(key)
	defer func() { _ = r.keys.UnlockKey(key) }()

	r.mu.RLock()
	monitorHandle, exists := r.handles[key]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotMonitoring, key)
	}

	monitorHandle.cancel()
	<-monitorHandle.done

	r.mu.Lock()
	delete(r.handles, key)
	r.mu.Unlock()

	r.logger.WithField("key", key).Debug("monitor stopped")

	return nil
}

// StopAll stops every live monitor.
func (r *Registry) StopAll() {
	for _, key := range r.Keys() {
		// A concurrent Stop may already have removed the key.
		_ = r.Stop(key)
	}
}

// Shutdown stops every live monitor. Dependency containers call it on teardown.
func (r *Registry) Shutdown() {
	r.StopAll()
}

// LastStatus returns the latest recorded status for key, or StatusUnknown.
func (r *Registry) LastStatus(key string) Status {
	snapshot, ok := r.Snapshot(key)
	if !ok {
		return StatusUnknown
	}

	return snapshot.Status
}

// Snapshot returns the handle state for key.
func (r *Registry) Snapshot(key string) (Snapshot, bool) {
	r.mu.RLock()
	monitorHandle, exists := r.handles[key]
	r.mu.RUnlock()

	if !exists {
		return Snapshot{Key: key, Status: StatusUnknown}, false
	}

	return monitorHandle.snapshot(), true
}

// Keys returns the monitored keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.handles))
	for key := range r.handles {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// --- internals ---

type handle struct {
	key      string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	mu        sync.RWMutex
	status    Status
	lastCheck time.Time
	checks    int
	failures  int
}

func (h *handle) run(ctx context.Context, probe Probe, clk clock.Clock, logger logrus.FieldLogger) {
	defer close(h.done)

	for {
		status, err := evaluate(ctx, probe)

		// A check that straddled cancellation must not be recorded.
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			h.recordFailure(clk.Now())
			logger.WithError(err).Warn("monitor check failed")
		} else {
			h.record(status, clk.Now())
		}

		timer := clk.NewTimer(h.interval)

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-timer.C():
		}
	}
}

// evaluate turns a panicking probe into an error so one bad check cannot kill the loop.
//
//nolint:nonamedreturns // Named returns let the deferred recover set the error.
func evaluate(ctx context.Context, probe Probe) (status Status, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			status = StatusUnknown
			err = fmt.Errorf("%w: %v", ErrProbePanicked, recovered)
		}
	}()

	return probe(ctx)
}

func (h *handle) record(status Status, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.status = status
	h.lastCheck = at
	h.checks++
}

func (h *handle) recordFailure(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastCheck = at
	h.checks++
	h.failures++
}

func (h *handle) snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Snapshot{
		Key:       h.key,
		Status:    h.status,
		LastCheck: h.lastCheck,
		Checks:    h.checks,
		Failures:  h.failures,
		Interval:  h.interval,
	}
}
