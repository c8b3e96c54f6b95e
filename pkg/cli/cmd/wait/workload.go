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

// NewDeploymentCmd creates the wait deployment command.
func NewDeploymentCmd(runtimeContainer *di.Runtime) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:          "deployment NAME",
		Short:        "Wait for a deployment's ready replicas to match its desired replicas",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return runWait(runtimeContainer, cmd, "deployment "+namespace+"/"+name, func(
				ctx context.Context,
				clientset kubernetes.Interface,
				cfg *config.Config,
				opts []waiter.Option,
			) error {
				return readiness.WaitForDeploymentReady(ctx, clientset, namespace, name, cfg.Wait, opts...)
			})
		},
	}

	addNamespaceFlag(cmd, &namespace)

	return cmd
}

// NewPodCmd creates the wait pod command.
func NewPodCmd(runtimeContainer *di.Runtime) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:          "pod NAME",
		Short:        "Wait for a pod to be Running with every container ready",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return runWait(runtimeContainer, cmd, "pod "+namespace+"/"+name, func(
				ctx context.Context,
				clientset kubernetes.Interface,
				cfg *config.Config,
				opts []waiter.Option,
			) error {
				return readiness.WaitForPodReady(ctx, clientset, namespace, name, cfg.Wait, opts...)
			})
		},
	}

	addNamespaceFlag(cmd, &namespace)

	return cmd
}

func addNamespaceFlag(cmd *cobra.Command, namespace *string) {
	cmd.Flags().StringVarP(namespace, "namespace", "n", readiness.DefaultNamespace, "Namespace of the resource")
}
