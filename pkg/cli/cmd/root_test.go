package cmd_test

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/devantler-tech/converge/pkg/cli/cmd"
	"github.com/devantler-tech/converge/pkg/config"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRootTest = errors.New("boom")

func TestMain(m *testing.M) {
	exitCode := m.Run()

	_, err := snaps.Clean(m, snaps.CleanOpts{Sort: true})
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to clean snapshots: " + err.Error() + "\n")

		os.Exit(1)
	}

	os.Exit(exitCode)
}

func newTestCommand(use string, runE func(*cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:  use,
		RunE: runE,
	}
}

func setupRootWithBuffer(out *bytes.Buffer, args ...string) *cobra.Command {
	root := cmd.NewRootCmd("1.2.3", "abc123", "2025-08-17")
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)

	return root
}

func TestNewRootCmdVersionFormatting(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCmd("1.2.3", "abc123", "2025-08-17")

	assert.Equal(t, "1.2.3 (Built on 2025-08-17 from Git SHA abc123)", root.Version)
}

func TestExecuteShowsHelp(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, setupRootWithBuffer(&out).Execute())

	for _, expected := range []string{"converge polls a Kubernetes cluster", "wait", "watch", "config", "version"} {
		assert.Contains(t, out.String(), expected)
	}
}

func TestExecuteShowsVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, setupRootWithBuffer(&out, "--version").Execute())

	snaps.MatchSnapshot(t, out.String())
}

func TestVersionCommandMatchesVersionFlag(t *testing.T) {
	t.Parallel()

	var flagOut, cmdOut bytes.Buffer

	require.NoError(t, setupRootWithBuffer(&flagOut, "--version").Execute())
	require.NoError(t, setupRootWithBuffer(&cmdOut, "version").Execute())

	assert.Equal(t, flagOut.String(), cmdOut.String())
}

func TestConfigViewDefaults(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, setupRootWithBuffer(&out, "config", "view").Execute())

	snaps.MatchSnapshot(t, out.String())
}

func TestConfigViewAppliesFlags(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := setupRootWithBuffer(&out,
		"config", "view", "--timeout", "90s", "--log-format", "json", "--max-concurrency", "4")
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "timeout: 1m30s")
	assert.Contains(t, out.String(), "format: json")
	assert.Contains(t, out.String(), "max-concurrency: 4")
}

func TestConfigViewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := setupRootWithBuffer(&out, "config", "view", "--log-format", "xml").Execute()

	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPersistentFlagDefaults(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCmd("test", "test", "test")
	defaults := config.Default()

	tests := []struct {
		flag     string
		expected string
	}{
		{flag: "config", expected: ""},
		{flag: "kubeconfig", expected: ""},
		{flag: "context", expected: ""},
		{flag: "timeout", expected: defaults.Wait.Timeout.String()},
		{flag: "interval", expected: defaults.Wait.Interval.String()},
		{flag: "retry-attempts", expected: "3"},
		{flag: "retry-delay", expected: time.Second.String()},
		{flag: "monitor-interval", expected: defaults.Monitor.Interval.String()},
		{flag: "max-concurrency", expected: "0"},
		{flag: "log-level", expected: "info"},
		{flag: "log-format", expected: "text"},
	}

	for _, tc := range tests {
		t.Run(tc.flag, func(t *testing.T) {
			t.Parallel()

			flag := root.PersistentFlags().Lookup(tc.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tc.expected, flag.DefValue)
		})
	}
}

func TestExecuteReturnsError(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCmd("test", "test", "test")
	root.SetArgs([]string{"fail"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.AddCommand(newTestCommand("fail", func(*cobra.Command, []string) error {
		return errRootTest
	}))

	require.ErrorIs(t, root.Execute(), errRootTest)
}

func TestExecuteWithNonexistentCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := setupRootWithBuffer(&out, "nonexistent").Execute()

	require.Error(t, err)
	assert.Contains(t, out.String(), `unknown command "nonexistent" for "converge"`)
}

func TestExecuteWrapper(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		runE    func(*cobra.Command, []string) error
		wantErr error
	}{
		{name: "success", runE: func(*cobra.Command, []string) error { return nil }},
		{name: "error", runE: func(*cobra.Command, []string) error { return errRootTest }, wantErr: errRootTest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer

			root := setupRootWithBuffer(&out, "probe")
			root.AddCommand(newTestCommand("probe", tc.runE))

			err := cmd.Execute(root)
			if tc.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), "command execution failed")
		})
	}
}
