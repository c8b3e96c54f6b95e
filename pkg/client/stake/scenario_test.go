package stake_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/devantler-tech/converge/pkg/backoff"
	"github.com/devantler-tech/converge/pkg/client/stake"
	"github.com/devantler-tech/converge/pkg/logcapture"
	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/devantler-tech/converge/pkg/monitor"
	"github.com/devantler-tech/converge/pkg/parallel"
	"github.com/devantler-tech/converge/pkg/perf"
	"github.com/devantler-tech/converge/pkg/retry"
	"github.com/devantler-tech/converge/pkg/tracker"
	"github.com/devantler-tech/converge/pkg/wait"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_AgentRegistration drives a validator the way an end-to-end
// suite does: flaky lookups are retried, wallets are checked concurrently,
// a background monitor follows a stake change and every step is timed and
// logged.
func TestScenario_AgentRegistration(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	logger, err := logging.New(logging.Options{Level: "debug", Output: io.Discard})
	require.NoError(t, err)

	capture := logcapture.New(logger)
	capture.Start("converge")
	t.Cleanup(capture.Stop)

	timings := perf.NewTracker(perf.WithLogger(logger))
	resources := tracker.NewForTest(t, logger)

	validator := stake.NewValidator(
		stake.WithLogger(logger),
		stake.WithLatency(0, 0),
		stake.WithRetry(
			backoff.Spec{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2},
			retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		),
	)

	validator.FailNext(1)

	err = timings.Measure(ctx, "validate-stake", func(ctx context.Context) error {
		valid, validateErr := validator.Validate(ctx, stake.WalletRich, stake.DefaultMinStake, false)
		assert.True(t, valid)

		return validateErr
	})
	require.NoError(t, err)
	require.NoError(t, capture.AssertContains("attempt failed, retrying", logrus.WarnLevel))

	wallets := []string{stake.WalletRich, stake.WalletExact, stake.WalletPoor}
	tasks := make([]func(context.Context) (bool, error), 0, len(wallets))

	for _, wallet := range wallets {
		tasks = append(tasks, func(ctx context.Context) (bool, error) {
			return validator.Validate(ctx, wallet, stake.DefaultMinStake, true)
		})
	}

	results := parallel.Gather(ctx, 2, tasks...)
	require.Empty(t, parallel.Errors(results))

	verdicts := make([]bool, 0, len(results))
	for _, result := range results {
		verdicts = append(verdicts, result.Value)
	}

	assert.Equal(t, []bool{true, true, false}, verdicts)

	registry := monitor.NewRegistry(monitor.WithLogger(logger))
	probe := validator.Probe(stake.WalletExact, stake.DefaultMinStake)
	require.NoError(t, registry.Start(ctx, stake.WalletExact, probe, time.Millisecond))
	resources.Track("monitor", stake.WalletExact, func(context.Context) error {
		return registry.Stop(stake.WalletExact)
	})

	statusIs := func(want monitor.Status) wait.Probe {
		return func(context.Context) (bool, error) {
			return registry.LastStatus(stake.WalletExact) == want, nil
		}
	}

	spec := wait.Spec{Timeout: 2 * time.Second, Interval: time.Millisecond}

	require.NoError(t, wait.Until(ctx, statusIs(monitor.StatusValid), spec.WithDescription("stake monitor valid"),
		wait.WithLogger(logger)))

	validator.SetStake(stake.WalletExact, stake.DefaultMinStake-1)

	require.NoError(t, wait.Until(ctx, statusIs(monitor.StatusInvalid), spec.WithDescription("stake monitor invalid"),
		wait.WithLogger(logger)))

	require.NoError(t, timings.AssertPerformance("validate-stake", time.Second))
	require.NoError(t, capture.AssertNoErrors())
	assert.NotEmpty(t, capture.Collect(logcapture.FromSource(stake.SourceStake)))
}
