package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/devantler-tech/converge/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_AcceptsThirdResult(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	replicas := 0

	got, err := retry.Until(
		context.Background(),
		retry.PollSpec{Attempts: 5, Delay: 2 * time.Second, Description: "deployment replicas"},
		func(context.Context) (int, error) {
			replicas++

			return replicas, nil
		},
		func(ready int) bool { return ready >= 3 },
		retry.WithSleeper(recorder.sleep),
	)

	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, recorder.recorded())
}

func TestUntil_ErrorsAreNotFinal(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	calls := 0

	got, err := retry.Until(
		context.Background(),
		retry.PollSpec{Attempts: 3, Delay: time.Millisecond, Description: "pod"},
		func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errFlaky
			}

			return "Running", nil
		},
		func(phase string) bool { return phase == "Running" },
		retry.WithSleeper(recorder.sleep),
	)

	require.NoError(t, err)
	assert.Equal(t, "Running", got)
}

func TestUntil_Exhausted(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}

	_, err := retry.Until(
		context.Background(),
		retry.PollSpec{Attempts: 4, Delay: time.Second, Description: "attestation consensus"},
		func(context.Context) (bool, error) { return false, nil },
		func(ok bool) bool { return ok },
		retry.WithSleeper(recorder.sleep),
	)

	require.ErrorIs(t, err, retry.ErrAttemptsExhausted)
	assert.Contains(t, err.Error(), "attestation consensus")
	assert.Len(t, recorder.recorded(), 3, "no delay after the final attempt")
}

func TestUntil_InvalidSpec(t *testing.T) {
	t.Parallel()

	_, err := retry.Until(
		context.Background(),
		retry.PollSpec{},
		func(context.Context) (bool, error) { return true, nil },
		func(ok bool) bool { return ok },
	)

	require.ErrorIs(t, err, retry.ErrInvalidPollSpec)
}
