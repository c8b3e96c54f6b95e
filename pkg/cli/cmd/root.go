package cmd

import (
	"context"
	"fmt"

	"github.com/devantler-tech/converge/pkg/cli/cmd/wait"
	"github.com/devantler-tech/converge/pkg/cli/cmd/watch"
	"github.com/devantler-tech/converge/pkg/cli/errorhandler"
	"github.com/devantler-tech/converge/pkg/config"
	"github.com/devantler-tech/converge/pkg/di"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with version info and subcommands.
func NewRootCmd(version, commit, date string) *cobra.Command {
	return NewRootCmdWithRuntime(di.NewRuntime(), version, commit, date)
}

// NewRootCmdWithRuntime creates the root command on top of runtimeContainer.
// Tests use it to swap the cluster client factory.
func NewRootCmdWithRuntime(runtimeContainer *di.Runtime, version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Wait for and watch eventually-consistent cluster state",
		Long: "converge polls a Kubernetes cluster until nodes, deployments, pods or the API server " +
			"reach the state you expect, with bounded timeouts, retries and timing reports.",
		RunE:         handleRootRunE,
		SilenceUsage: true,
	}

	cmd.Version = fmt.Sprintf("%s (Built on %s from Git SHA %s)", version, date, commit)

	addPersistentFlags(cmd)

	cmd.AddCommand(wait.NewWaitCmd(runtimeContainer))
	cmd.AddCommand(watch.NewWatchCmd(runtimeContainer))
	cmd.AddCommand(NewConfigCmd(runtimeContainer))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and handles errors. The command's context, if
// set, is cancelled to abort waits and monitors.
func Execute(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err := errorhandler.NewExecutor().Execute(ctx, cmd)
	if err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}

	return nil
}

func addPersistentFlags(cmd *cobra.Command) {
	defaults := config.Default()
	flags := cmd.PersistentFlags()

	flags.String("config", "", "Path to a converge config file (default ./converge.yaml)")
	flags.String("kubeconfig", "", "Path to the kubeconfig file (default ~/.kube/config)")
	flags.String("context", "", "Kubeconfig context to use")
	flags.Duration("timeout", defaults.Wait.Timeout, "Maximum time to wait for a condition")
	flags.Duration("interval", defaults.Wait.Interval, "Time between condition checks")
	flags.Int("retry-attempts", defaults.Retry.MaxAttempts, "Attempts for retried operations")
	flags.Duration("retry-delay", defaults.Retry.InitialDelay, "Delay before the first retry")
	flags.Duration("monitor-interval", defaults.Monitor.Interval, "Time between background monitor checks")
	flags.Int64("max-concurrency", 0, "Maximum concurrent checks (0 selects a CPU based default)")
	flags.String("log-level", defaults.Log.Level, "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", string(defaults.Log.Format), "Log format (text, json)")
}

func handleRootRunE(cmd *cobra.Command, _ []string) error {
	// The err can safely be ignored, as it can never fail at runtime.
	_ = cmd.Help()

	return nil
}
