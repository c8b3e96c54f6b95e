// Package backoff computes the delay sequences used between retry attempts.
//
// A Spec is a plain value object: the first delay is InitialDelay and every
// following delay is the previous one multiplied by Multiplier. There is no delay
// after the final attempt, so a Spec with MaxAttempts n yields n-1 delays.
package backoff

import (
	"fmt"
	"math"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = time.Second
	defaultMultiplier   = 2.0

	// maxDelayCeiling bounds uncapped schedules so a delay never overflows.
	maxDelayCeiling = time.Duration(math.MaxInt64)
)

// Spec describes a bounded retry schedule.
type Spec struct {
	// MaxAttempts is the total number of attempts, including the first one. Must be >= 1.
	MaxAttempts int `json:"maxAttempts" mapstructure:"max-attempts"`
	// InitialDelay is the delay before the second attempt. Must be >= 0.
	InitialDelay time.Duration `json:"initialDelay" mapstructure:"initial-delay"`
	// Multiplier scales the delay after every failed attempt. Must be >= 1.
	Multiplier float64 `json:"multiplier" mapstructure:"multiplier"`
	// MaxDelay caps every delay, the first one included. Zero means uncapped
	// up to the largest representable duration.
	MaxDelay time.Duration `json:"maxDelay,omitempty" mapstructure:"max-delay"`
}

// Default returns three attempts starting at one second and doubling.
func Default() Spec {
	return Spec{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		Multiplier:   defaultMultiplier,
	}
}

// Validate reports whether the spec describes a usable schedule.
func (s Spec) Validate() error {
	switch {
	case s.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidSpec, s.MaxAttempts)
	case s.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay must not be negative, got %s", ErrInvalidSpec, s.InitialDelay)
	case s.Multiplier < 1:
		return fmt.Errorf("%w: multiplier must be at least 1, got %g", ErrInvalidSpec, s.Multiplier)
	case s.MaxDelay < 0:
		return fmt.Errorf("%w: max delay must not be negative, got %s", ErrInvalidSpec, s.MaxDelay)
	default:
		return nil
	}
}

// Delays returns the full delay sequence, one entry per gap between attempts.
func (s Spec) Delays() []time.Duration {
	if s.MaxAttempts <= 1 {
		return nil
	}

	schedule := s.Schedule()
	delays := make([]time.Duration, 0, s.MaxAttempts-1)

	for range s.MaxAttempts - 1 {
		delays = append(delays, schedule.Next())
	}

	return delays
}

// Schedule returns a stateful iterator over the spec's delays.
func (s Spec) Schedule() *Schedule {
	steps := max(s.MaxAttempts-1, 0)

	ceiling := s.MaxDelay
	if ceiling <= 0 {
		ceiling = maxDelayCeiling
	}

	return &Schedule{
		remaining: steps,
		backoff: wait.Backoff{
			Duration: min(s.InitialDelay, ceiling),
			Factor:   s.Multiplier,
			Steps:    steps,
			Cap:      ceiling,
		},
	}
}

// Schedule hands out delays one at a time.
type Schedule struct {
	backoff   wait.Backoff
	remaining int
}

// Remaining is the number of delays not yet handed out.
func (s *Schedule) Remaining() int {
	return s.remaining
}

// Next returns the current delay and advances the schedule.
// Once exhausted it keeps returning the last delay.
func (s *Schedule) Next() time.Duration {
	if s.remaining > 0 {
		s.remaining--
	}

	if s.saturates() {
		current := s.backoff.Duration
		s.backoff.Duration = s.backoff.Cap
		s.backoff.Steps = 0

		return current
	}

	// wait.Backoff zeroes Steps once the cap is reached and then keeps
	// returning the capped duration.
	return s.backoff.Step()
}

// saturates reports whether growing the current delay would reach the cap.
// wait.Backoff multiplies in float64 and converts back without a range check,
// so the comparison happens here before the conversion can wrap.
func (s *Schedule) saturates() bool {
	if s.backoff.Steps < 1 {
		return false
	}

	return float64(s.backoff.Duration)*s.backoff.Factor >= float64(s.backoff.Cap)
}
