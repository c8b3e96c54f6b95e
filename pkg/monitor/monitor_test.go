package monitor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devantler-tech/converge/pkg/monitor"
	"github.com/devantler-tech/converge/pkg/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wallet        = "0x1111111111111111111111111111111111111111"
	checkInterval = 5 * time.Millisecond
)

var errRPC = errors.New("rpc unavailable")

func eventually(t *testing.T, condition func() bool, description string) {
	t.Helper()

	err := wait.Until(context.Background(), func(context.Context) (bool, error) {
		return condition(), nil
	}, wait.Spec{Timeout: 2 * time.Second, Interval: time.Millisecond, Description: description})
	require.NoError(t, err)
}

func TestRegistry_StartRecordsStatus(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()
	t.Cleanup(registry.StopAll)

	var valid atomic.Bool

	valid.Store(true)

	err := registry.Start(context.Background(), wallet, monitor.FromBool(func(context.Context) (bool, error) {
		return valid.Load(), nil
	}), checkInterval)
	require.NoError(t, err)

	eventually(t, func() bool { return registry.LastStatus(wallet) == monitor.StatusValid }, "valid status")

	valid.Store(false)

	eventually(t, func() bool { return registry.LastStatus(wallet) == monitor.StatusInvalid }, "invalid status")

	snapshot, ok := registry.Snapshot(wallet)
	require.True(t, ok)
	assert.Positive(t, snapshot.Checks)
	assert.False(t, snapshot.LastCheck.IsZero())
	assert.Equal(t, checkInterval, snapshot.Interval)
}

func TestRegistry_StartTwice_AlreadyMonitoring(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()
	t.Cleanup(registry.StopAll)

	probe := monitor.FromBool(func(context.Context) (bool, error) { return true, nil })

	require.NoError(t, registry.Start(context.Background(), wallet, probe, checkInterval))

	err := registry.Start(context.Background(), wallet, probe, checkInterval)
	require.ErrorIs(t, err, monitor.ErrAlreadyMonitoring)
	assert.Contains(t, err.Error(), wallet)
}

func TestRegistry_StopIsDurable(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()

	var calls atomic.Int64

	err := registry.Start(context.Background(), wallet, func(context.Context) (monitor.Status, error) {
		calls.Add(1)

		return monitor.StatusValid, nil
	}, time.Millisecond)
	require.NoError(t, err)

	eventually(t, func() bool { return calls.Load() >= 3 }, "a few checks")

	require.NoError(t, registry.Stop(wallet))

	callsAtStop := calls.Load()

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, callsAtStop, calls.Load(), "no checks after Stop returns")
	assert.Equal(t, monitor.StatusUnknown, registry.LastStatus(wallet))
	assert.Empty(t, registry.Keys())

	_, ok := registry.Snapshot(wallet)
	assert.False(t, ok)
}

func TestRegistry_StopThenStartAgain(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()
	t.Cleanup(registry.StopAll)

	probe := monitor.FromBool(func(context.Context) (bool, error) { return true, nil })

	require.NoError(t, registry.Start(context.Background(), wallet, probe, checkInterval))
	require.NoError(t, registry.Stop(wallet))
	require.NoError(t, registry.Start(context.Background(), wallet, probe, checkInterval))
}

func TestRegistry_StopUnknownKey(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()

	err := registry.Stop("0xdeadbeef")

	require.ErrorIs(t, err, monitor.ErrNotMonitoring)
}

func TestRegistry_StopWaitsForInFlightProbe(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()

	entered := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once

	err := registry.Start(context.Background(), wallet, func(context.Context) (monitor.Status, error) {
		once.Do(func() { close(entered) })
		<-release

		return monitor.StatusValid, nil
	}, checkInterval)
	require.NoError(t, err)

	<-entered

	stopped := make(chan error, 1)

	go func() {
		stopped <- registry.Stop(wallet)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the probe was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	require.NoError(t, <-stopped)
	assert.Empty(t, registry.Keys())
}

func TestRegistry_ProbeFailuresDoNotEndLoop(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()
	t.Cleanup(registry.StopAll)

	var calls atomic.Int64

	err := registry.Start(context.Background(), wallet, func(context.Context) (monitor.Status, error) {
		n := calls.Add(1)

		switch {
		case n == 2:
			panic("stake cache corrupted")
		case n < 4:
			return monitor.StatusUnknown, errRPC
		default:
			return monitor.StatusInvalid, nil
		}
	}, time.Millisecond)
	require.NoError(t, err)

	eventually(t, func() bool { return registry.LastStatus(wallet) == monitor.StatusInvalid }, "recovered status")

	snapshot, _ := registry.Snapshot(wallet)
	assert.GreaterOrEqual(t, snapshot.Failures, 3)
}

func TestRegistry_StatusUnknownBeforeFirstCheck(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()
	t.Cleanup(registry.StopAll)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	err := registry.Start(context.Background(), wallet, func(ctx context.Context) (monitor.Status, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}

		return monitor.StatusValid, nil
	}, checkInterval)
	require.NoError(t, err)

	assert.Equal(t, monitor.StatusUnknown, registry.LastStatus(wallet))
}

func TestRegistry_ConcurrentStartSameKey(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()
	t.Cleanup(registry.StopAll)

	probe := monitor.FromBool(func(context.Context) (bool, error) { return true, nil })

	var (
		group     sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)

	for range 10 {
		group.Go(func() {
			err := registry.Start(context.Background(), wallet, probe, checkInterval)

			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, monitor.ErrAlreadyMonitoring):
				conflicts.Add(1)
			}
		})
	}

	group.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(9), conflicts.Load())
}

func TestRegistry_StopAll(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()
	probe := monitor.FromBool(func(context.Context) (bool, error) { return true, nil })

	for _, key := range []string{"0x2222", "0x1111", "0x3333"} {
		require.NoError(t, registry.Start(context.Background(), key, probe, checkInterval))
	}

	assert.Equal(t, []string{"0x1111", "0x2222", "0x3333"}, registry.Keys())

	registry.StopAll()

	assert.Empty(t, registry.Keys())
}

func TestRegistry_InvalidInterval(t *testing.T) {
	t.Parallel()

	registry := monitor.NewRegistry()

	err := registry.Start(context.Background(), wallet, monitor.FromBool(func(context.Context) (bool, error) {
		return true, nil
	}), 0)

	require.ErrorIs(t, err, monitor.ErrInvalidInterval)
	assert.Empty(t, registry.Keys())
}

func TestFromBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ok      bool
		err     error
		want    monitor.Status
		wantErr bool
	}{
		{name: "true_is_valid", ok: true, want: monitor.StatusValid},
		{name: "false_is_invalid", ok: false, want: monitor.StatusInvalid},
		{name: "error_is_unknown", err: errRPC, want: monitor.StatusUnknown, wantErr: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			status, err := monitor.FromBool(func(context.Context) (bool, error) {
				return testCase.ok, testCase.err
			})(context.Background())

			assert.Equal(t, testCase.want, status)
			assert.Equal(t, testCase.wantErr, err != nil)
		})
	}
}
