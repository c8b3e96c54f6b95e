package stake_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/devantler-tech/converge/pkg/backoff"
	"github.com/devantler-tech/converge/pkg/client/stake"
	"github.com/devantler-tech/converge/pkg/monitor"
	"github.com/devantler-tech/converge/pkg/retry"
	"github.com/devantler-tech/converge/pkg/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

// sleepRecorder records retry delays without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.delays = append(r.delays, d)

	return ctx.Err()
}

func newInstantValidator(opts ...stake.Option) (*stake.Validator, *sleepRecorder) {
	recorder := &sleepRecorder{}

	opts = append([]stake.Option{
		stake.WithLatency(0, 0),
		stake.WithRetry(backoff.Default(), retry.WithSleeper(recorder.sleep)),
	}, opts...)

	return stake.NewValidator(opts...), recorder
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		wallet   string
		minStake uint64
		want     bool
	}{
		{name: "rich_wallet_above_minimum", wallet: stake.WalletRich, minStake: stake.DefaultMinStake, want: true},
		{name: "exact_stake_is_sufficient", wallet: stake.WalletExact, minStake: stake.DefaultMinStake, want: true},
		{name: "poor_wallet_below_minimum", wallet: stake.WalletPoor, minStake: stake.DefaultMinStake, want: false},
		{name: "unknown_wallet_uses_default", wallet: "0xabc", minStake: stake.DefaultMinStake, want: true},
		{name: "unknown_wallet_below_high_minimum", wallet: "0xabc", minStake: 2_000_000_000, want: false},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			validator, _ := newInstantValidator()

			got, err := validator.Validate(context.Background(), testCase.wallet, testCase.minStake, true)

			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestValidator_AdjustedMinimum(t *testing.T) {
	t.Parallel()

	validator, _ := newInstantValidator(stake.WithScores(map[string]int{
		stake.WalletTopScore: 95,
		stake.WalletAvgScore: 85,
		"0xlow":              70,
	}))

	tests := []struct {
		name   string
		wallet string
		want   uint64
	}{
		{name: "top_score_discount", wallet: stake.WalletTopScore, want: 900_000_000},
		{name: "average_score_unchanged", wallet: stake.WalletAvgScore, want: 1_000_000_000},
		{name: "default_score_unchanged", wallet: "0xunknown", want: 1_000_000_000},
		{name: "low_score_penalty", wallet: "0xlow", want: 1_200_000_000},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, validator.AdjustedMinimum(testCase.wallet, stake.DefaultMinStake))
		})
	}
}

func TestValidator_ValidateWithPerformance(t *testing.T) {
	t.Parallel()

	validator, _ := newInstantValidator(stake.WithStakes(map[string]uint64{
		stake.WalletTopScore: 950_000_000,
	}))

	adjusted, err := validator.ValidateWithPerformance(context.Background(), stake.WalletTopScore, stake.DefaultMinStake, true)
	require.NoError(t, err)
	assert.True(t, adjusted, "discounted minimum is met")

	plain, err := validator.ValidateWithPerformance(context.Background(), stake.WalletTopScore, stake.DefaultMinStake, false)
	require.NoError(t, err)
	assert.False(t, plain, "base minimum is not met")
}

func TestValidator_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	validator, recorder := newInstantValidator()
	validator.FailNext(2)

	amount, err := validator.Stake(context.Background(), stake.WalletRich, false)

	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000_000), amount)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, recorder.delays)
}

func TestValidator_ExhaustedRetriesReturnLookupError(t *testing.T) {
	t.Parallel()

	validator, _ := newInstantValidator()
	validator.FailNext(3)

	_, err := validator.Validate(context.Background(), stake.WalletRich, stake.DefaultMinStake, true)

	require.ErrorIs(t, err, stake.ErrLookupFailed)
}

func TestValidator_CachedLookupIsFaster(t *testing.T) {
	t.Parallel()

	fakeClock := clocktesting.NewFakeClock(time.Now())
	validator := stake.NewValidator(
		stake.WithClock(fakeClock),
		stake.WithLatency(100*time.Millisecond, 500*time.Millisecond),
	)

	lookup := func() <-chan struct{} {
		done := make(chan struct{})

		go func() {
			defer close(done)

			_, err := validator.Stake(context.Background(), stake.WalletRich, true)
			assert.NoError(t, err)
		}()

		return done
	}

	awaitTimer := func() {
		require.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	}

	first := lookup()

	awaitTimer()
	fakeClock.Step(100 * time.Millisecond)
	assert.True(t, fakeClock.HasWaiters(), "uncached lookup is still waiting")
	fakeClock.Step(400 * time.Millisecond)
	<-first

	second := lookup()

	awaitTimer()
	fakeClock.Step(100 * time.Millisecond)
	<-second
}

func TestValidator_ProbeDrivesMonitor(t *testing.T) {
	t.Parallel()

	validator, _ := newInstantValidator()
	registry := monitor.NewRegistry()
	t.Cleanup(registry.StopAll)

	probe := validator.Probe(stake.WalletExact, stake.DefaultMinStake)

	require.NoError(t, registry.Start(context.Background(), stake.WalletExact, probe, 5*time.Millisecond))

	awaitStatus := func(want monitor.Status) {
		err := wait.Until(context.Background(), func(context.Context) (bool, error) {
			return registry.LastStatus(stake.WalletExact) == want, nil
		}, wait.Spec{Timeout: 2 * time.Second, Interval: time.Millisecond, Description: "status " + string(want)})
		require.NoError(t, err)
	}

	awaitStatus(monitor.StatusValid)

	validator.SetStake(stake.WalletExact, 999_999_999)

	awaitStatus(monitor.StatusInvalid)

	require.NoError(t, registry.Stop(stake.WalletExact))
	assert.Equal(t, monitor.StatusUnknown, registry.LastStatus(stake.WalletExact))
}
