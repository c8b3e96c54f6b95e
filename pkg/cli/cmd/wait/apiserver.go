package wait

import (
	"context"
	"fmt"

	"github.com/devantler-tech/converge/pkg/config"
	"github.com/devantler-tech/converge/pkg/di"
	"github.com/devantler-tech/converge/pkg/k8s/readiness"
	waiter "github.com/devantler-tech/converge/pkg/wait"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
)

// NewAPIServerCmd creates the wait apiserver command.
func NewAPIServerCmd(runtimeContainer *di.Runtime) *cobra.Command {
	var stable int

	cmd := &cobra.Command{
		Use:   "apiserver",
		Short: "Wait for the API server to answer version requests",
		Long: "Wait for the API server to answer version requests. With --stable N it must " +
			"answer N times in a row, which rides out restarts right after bootstrap.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := "API server"
			if stable > 1 {
				target = fmt.Sprintf("API server (%d consecutive answers)", stable)
			}

			return runWait(runtimeContainer, cmd, target, func(
				ctx context.Context,
				clientset kubernetes.Interface,
				cfg *config.Config,
				_ []waiter.Option,
			) error {
				return readiness.WaitForAPIServerStable(ctx, clientset, cfg.Wait.Timeout, cfg.Wait.Interval, stable)
			})
		},
	}

	cmd.Flags().IntVar(&stable, "stable", 1, "Consecutive successful answers required")

	return cmd
}
