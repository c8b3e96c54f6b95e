package wait

import (
	"context"

	"github.com/devantler-tech/converge/pkg/config"
	"github.com/devantler-tech/converge/pkg/di"
	"github.com/devantler-tech/converge/pkg/k8s/readiness"
	waiter "github.com/devantler-tech/converge/pkg/wait"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
)

// NewNodeCmd creates the wait node command. Without a name it waits for any node.
func NewNodeCmd(runtimeContainer *di.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:          "node [NAME]",
		Short:        "Wait for a node to report Ready",
		Long:         "Wait for the named node to report the Ready condition, or for any node when no name is given.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			target := "any node"

			if len(args) == 1 {
				name = args[0]
				target = "node " + name
			}

			return runWait(runtimeContainer, cmd, target, func(
				ctx context.Context,
				clientset kubernetes.Interface,
				cfg *config.Config,
				opts []waiter.Option,
			) error {
				return readiness.WaitForNodeReady(ctx, clientset, name, cfg.Wait, opts...)
			})
		},
	}
}
