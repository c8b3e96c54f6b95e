// Package stake is an in-memory stake validator standing in for the chain
// lookups of the system under test. Amounts are in MIST (1 SUI = 1e9 MIST).
//
// Lookups simulate network latency (shorter for cached wallets), can be made to
// fail transiently, and are retried with the configured backoff.
package stake

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/devantler-tech/converge/pkg/backoff"
	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/devantler-tech/converge/pkg/monitor"
	"github.com/devantler-tech/converge/pkg/retry"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// SourceStake tags validator log entries.
const SourceStake = "converge/stake"

const (
	// DefaultMinStake is the minimum stake monitors check against (1 SUI).
	DefaultMinStake uint64 = 1_000_000_000
	// DefaultStake is the stake of wallets without an explicit amount (1.5 SUI).
	DefaultStake uint64 = 1_500_000_000
	// DefaultScore is the performance score of wallets without an explicit score.
	DefaultScore = 90

	defaultCachedLatency   = 100 * time.Millisecond
	defaultUncachedLatency = 500 * time.Millisecond
)

// Well-known test wallets.
const (
	WalletRich     = "0x1111111111111111111111111111111111111111"
	WalletExact    = "0x2222222222222222222222222222222222222222"
	WalletPoor     = "0x3333333333333333333333333333333333333333"
	WalletTopScore = "0x8888888888888888888888888888888888888888"
	WalletAvgScore = "0x9999999999999999999999999999999999999999"
)

// DefaultStakes returns the stakes of the well-known wallets.
func DefaultStakes() map[string]uint64 {
	return map[string]uint64{
		WalletRich:  2_000_000_000,
		WalletExact: 1_000_000_000,
		WalletPoor:  500_000_000,
	}
}

// DefaultScores returns the performance scores of the well-known wallets.
func DefaultScores() map[string]int {
	return map[string]int{
		WalletTopScore: 95,
		WalletAvgScore: 85,
	}
}

// Validator answers stake queries from an in-memory table.
type Validator struct {
	mu              sync.Mutex
	stakes          map[string]uint64
	scores          map[string]int
	cached          map[string]bool
	pendingFailures int

	cachedLatency   time.Duration
	uncachedLatency time.Duration
	retrySpec       backoff.Spec
	retryOpts       []retry.Option
	clock           clock.Clock
	logger          logrus.FieldLogger
}

// Option configures a Validator.
type Option func(*Validator)

// WithStakes replaces the stake table.
func WithStakes(stakes map[string]uint64) Option {
	return func(v *Validator) {
		v.stakes = maps.Clone(stakes)
	}
}

// WithScores replaces the performance score table.
func WithScores(scores map[string]int) Option {
	return func(v *Validator) {
		v.scores = maps.Clone(scores)
	}
}

// WithLatency sets the simulated lookup latency. Zero disables the delay.
func WithLatency(cached, uncached time.Duration) Option {
	return func(v *Validator) {
		v.cachedLatency = cached
		v.uncachedLatency = uncached
	}
}

// WithRetry sets the schedule for retrying failed lookups.
func WithRetry(spec backoff.Spec, opts ...retry.Option) Option {
	return func(v *Validator) {
		v.retrySpec = spec
		v.retryOpts = opts
	}
}

// WithClock sets the clock used for simulated latency.
func WithClock(clk clock.Clock) Option {
	return func(v *Validator) {
		v.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a validator seeded with the well-known wallets.
func NewValidator(opts ...Option) *Validator {
	validator := &Validator{
		stakes:          DefaultStakes(),
		scores:          DefaultScores(),
		cached:          make(map[string]bool),
		cachedLatency:   defaultCachedLatency,
		uncachedLatency: defaultUncachedLatency,
		retrySpec:       backoff.Default(),
		clock:           clock.RealClock{},
	}

	for _, opt := range opts {
		opt(validator)
	}

	validator.logger = logging.ForSource(validator.logger, SourceStake)

	return validator
}

// SetStake changes a wallet's stake and drops it from the cache.
func (v *Validator) SetStake(wallet string, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stakes[wallet] = amount
	delete(v.cached, wallet)
}

// FailNext makes the next n lookups fail with ErrLookupFailed.
func (v *Validator) FailNext(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.pendingFailures = n
}

// Stake returns the wallet's stake, retrying failed lookups. With useCache a
// previously looked up wallet is answered with the cached latency.
func (v *Validator) Stake(ctx context.Context, wallet string, useCache bool) (uint64, error) {
	opts := append([]retry.Option{
		retry.WithLogger(v.logger),
		retry.WithName("stake lookup " + wallet),
	}, v.retryOpts...)

	return retry.Run(ctx, v.retrySpec, func(ctx context.Context) (uint64, error) {
		return v.lookup(ctx, wallet, useCache)
	}, opts...)
}

// Validate reports whether the wallet holds at least minStake.
func (v *Validator) Validate(ctx context.Context, wallet string, minStake uint64, useCache bool) (bool, error) {
	amount, err := v.Stake(ctx, wallet, useCache)
	if err != nil {
		return false, err
	}

	valid := amount >= minStake

	v.logger.WithFields(logrus.Fields{
		"wallet":    wallet,
		"stake":     amount,
		"min_stake": minStake,
		"valid":     valid,
	}).Debug("stake validated")

	return valid, nil
}

// AdjustedMinimum scales baseMin by the wallet's performance score: a score of
// 95 or more earns a 10% discount, 85 to 94 keeps the base and anything lower
// pays a 20% penalty.
func (v *Validator) AdjustedMinimum(wallet string, baseMin uint64) uint64 {
	v.mu.Lock()
	score, ok := v.scores[wallet]
	v.mu.Unlock()

	if !ok {
		score = DefaultScore
	}

	switch {
	case score >= 95:
		return baseMin * 9 / 10
	case score >= 85:
		return baseMin
	default:
		return baseMin * 12 / 10
	}
}

// ValidateWithPerformance validates against the performance adjusted minimum,
// or against baseMin when adjust is false.
func (v *Validator) ValidateWithPerformance(
	ctx context.Context,
	wallet string,
	baseMin uint64,
	adjust bool,
) (bool, error) {
	minStake := baseMin
	if adjust {
		minStake = v.AdjustedMinimum(wallet, baseMin)
	}

	return v.Validate(ctx, wallet, minStake, true)
}

// Probe returns a monitor probe reporting whether the wallet holds minStake.
func (v *Validator) Probe(wallet string, minStake uint64) monitor.Probe {
	return monitor.FromBool(func(ctx context.Context) (bool, error) {
		return v.Validate(ctx, wallet, minStake, true)
	})
}

func (v *Validator) lookup(ctx context.Context, wallet string, useCache bool) (uint64, error) {
	v.mu.Lock()

	if v.pendingFailures > 0 {
		v.pendingFailures--
		v.mu.Unlock()

		return 0, fmt.Errorf("%w: %s", ErrLookupFailed, wallet)
	}

	latency := v.uncachedLatency
	if useCache && v.cached[wallet] {
		latency = v.cachedLatency
	}

	amount, ok := v.stakes[wallet]
	if !ok {
		amount = DefaultStake
	}

	v.cached[wallet] = true
	v.mu.Unlock()

	err := retry.ClockSleeper(v.clock)(ctx, latency)
	if err != nil {
		return 0, fmt.Errorf("stake lookup %s: %w", wallet, err)
	}

	return amount, nil
}
