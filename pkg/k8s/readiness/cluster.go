package readiness

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Info is a coarse view of the cluster under test.
type Info struct {
	NodeCount       int `json:"nodeCount"`
	ReadyNodes      int `json:"readyNodes"`
	DeploymentCount int `json:"deploymentCount"`
}

// Ready reports whether the cluster has at least one ready node.
func (i Info) Ready() bool {
	return i.ReadyNodes > 0
}

// ClusterInfo counts nodes and deployments across all namespaces.
func ClusterInfo(ctx context.Context, clientset kubernetes.Interface) (Info, error) {
	nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return Info{}, fmt.Errorf("list nodes: %w", err)
	}

	deployments, err := clientset.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return Info{}, fmt.Errorf("list deployments: %w", err)
	}

	info := Info{
		NodeCount:       len(nodes.Items),
		DeploymentCount: len(deployments.Items),
	}

	for i := range nodes.Items {
		if isNodeReady(&nodes.Items[i]) {
			info.ReadyNodes++
		}
	}

	return info, nil
}
