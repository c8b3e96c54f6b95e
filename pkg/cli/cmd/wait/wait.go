// Package wait provides the wait subcommands, which block until a cluster
// resource is ready or the configured timeout elapses.
package wait

import (
	"context"
	"fmt"

	"github.com/devantler-tech/converge/pkg/cli/helpers"
	"github.com/devantler-tech/converge/pkg/config"
	"github.com/devantler-tech/converge/pkg/di"
	"github.com/devantler-tech/converge/pkg/notify"
	waiter "github.com/devantler-tech/converge/pkg/wait"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
)

// NewWaitCmd creates the parent wait command and its resource subcommands.
func NewWaitCmd(runtimeContainer *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait for cluster resources to become ready",
		Long: "Poll the cluster until a resource is ready. Each check runs every --interval " +
			"and gives up after --timeout.",
		Args:         cobra.NoArgs,
		RunE:         handleWaitRunE,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewNodeCmd(runtimeContainer))
	cmd.AddCommand(NewDeploymentCmd(runtimeContainer))
	cmd.AddCommand(NewPodCmd(runtimeContainer))
	cmd.AddCommand(NewAPIServerCmd(runtimeContainer))
	cmd.AddCommand(NewAllCmd(runtimeContainer))

	return cmd
}

func handleWaitRunE(cmd *cobra.Command, _ []string) error {
	// Cobra Help() can fail on a broken output stream; wrap it for clarity.
	err := cmd.Help()
	if err != nil {
		return fmt.Errorf("displaying wait command help: %w", err)
	}

	return nil
}

// waitFunc blocks until its target is ready.
type waitFunc func(
	ctx context.Context,
	clientset kubernetes.Interface,
	cfg *config.Config,
	opts []waiter.Option,
) error

// runWait resolves the shared services, runs fn inside a timed scope and
// reports the outcome with a timing summary.
func runWait(runtimeContainer *di.Runtime, cmd *cobra.Command, target string, fn waitFunc) error {
	handler := di.WithClientset(func(cmd *cobra.Command, injector di.Injector, clientset kubernetes.Interface) error {
		cfg, err := di.ResolveConfig(injector)
		if err != nil {
			return err
		}

		logger, err := di.ResolveLogger(injector)
		if err != nil {
			return err
		}

		tracker, err := di.ResolvePerfTracker(injector)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		notify.Titlef(out, "⏳", "Wait for %s...", target)
		notify.Activityf(out, "checking every %s for up to %s", cfg.Wait.Interval, cfg.Wait.Timeout)

		scope := tracker.Scope("wait " + target)
		err = fn(cmd.Context(), clientset, cfg, []waiter.Option{waiter.WithLogger(logger)})
		elapsed := scope.Stop(err)

		if err != nil {
			return fmt.Errorf("wait for %s: %w", target, err)
		}

		notify.SuccessWithElapsedf(out, elapsed, "%s ready", target)
		helpers.WriteSummary(out, tracker)

		return nil
	})

	return di.RunEWithRuntime(runtimeContainer, handler)(cmd, nil)
}
