package readiness

import (
	"context"
	"fmt"

	"github.com/devantler-tech/converge/pkg/wait"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// NodeReady reports whether the named node has condition Ready=True.
func NodeReady(clientset kubernetes.Interface, name string) wait.Probe {
	return func(ctx context.Context) (bool, error) {
		node, err := clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, fmt.Errorf("get node %s: %w", name, err)
		}

		return isNodeReady(node), nil
	}
}

// AnyNodeReady reports whether at least one node has condition Ready=True.
func AnyNodeReady(clientset kubernetes.Interface) wait.Probe {
	return func(ctx context.Context) (bool, error) {
		nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
		if err != nil {
			return false, fmt.Errorf("list nodes: %w", err)
		}

		for i := range nodes.Items {
			if isNodeReady(&nodes.Items[i]) {
				return true, nil
			}
		}

		return false, nil
	}
}

// WaitForNodeReady waits for the named node, or for any node when name is empty.
func WaitForNodeReady(
	ctx context.Context,
	clientset kubernetes.Interface,
	name string,
	spec wait.Spec,
	opts ...wait.Option,
) error {
	if name == "" {
		return wait.Until(ctx, AnyNodeReady(clientset), spec.WithDescription("any node to be ready"), opts...)
	}

	return wait.Until(ctx, NodeReady(clientset, name), spec.WithDescription("node "+name+" to be ready"), opts...)
}

func isNodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}

	return false
}
