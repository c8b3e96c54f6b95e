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

// NewAllCmd creates the wait all command, which waits for several resources
// concurrently and reports every one that is not ready.
func NewAllCmd(runtimeContainer *di.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "all CHECK...",
		Short: "Wait for several resources at once",
		Long: `Wait for several resources at once, at most --max-concurrency at a time.

Each CHECK is one of:
  node/NAME
  deployment/[NAMESPACE/]NAME
  pod/[NAMESPACE/]NAME`,
		Example:      "  converge wait all node/worker-1 deployment/kube-system/coredns pod/web-0",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := make([]readiness.Check, 0, len(args))

			for _, arg := range args {
				check, err := readiness.ParseCheck(arg)
				if err != nil {
					return err
				}

				checks = append(checks, check)
			}

			target := fmt.Sprintf("%d resources", len(checks))

			return runWait(runtimeContainer, cmd, target, func(
				ctx context.Context,
				clientset kubernetes.Interface,
				cfg *config.Config,
				opts []waiter.Option,
			) error {
				return readiness.WaitForResources(ctx, clientset, checks, cfg.Wait, cfg.Parallel.MaxConcurrency, opts...)
			})
		},
	}
}
