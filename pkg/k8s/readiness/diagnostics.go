package readiness

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// DiagnosePodFailures lists the unhealthy pods in the given namespaces, one
// line each, grouped under a per-namespace header. It returns "" when every
// pod is healthy. List failures are reported inline rather than returned.
func DiagnosePodFailures(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespaces []string,
) string {
	var builder strings.Builder

	for _, namespace := range namespaces {
		pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			fmt.Fprintf(&builder, "\n  (failed to list pods in %s: %v)", namespace, err)

			continue
		}

		var failures []string

		for i := range pods.Items {
			pod := &pods.Items[i]
			if isPodHealthy(pod) {
				continue
			}

			failures = append(failures, describePodFailure(pod))
		}

		if len(failures) == 0 {
			continue
		}

		fmt.Fprintf(&builder, "\nFailing pods in %s namespace:", namespace)

		for _, failure := range failures {
			builder.WriteString("\n  ")
			builder.WriteString(failure)
		}
	}

	return builder.String()
}

// isPodHealthy accepts ready pods and completed ones.
func isPodHealthy(pod *corev1.Pod) bool {
	return pod.Status.Phase == corev1.PodSucceeded || isPodReady(pod)
}

func describePodFailure(pod *corev1.Pod) string {
	for _, container := range pod.Status.ContainerStatuses {
		if container.State.Waiting != nil && container.State.Waiting.Reason != "" {
			return fmt.Sprintf("%s: %s for %s", pod.Name, container.State.Waiting.Reason, container.Image)
		}

		if container.State.Terminated != nil && container.State.Terminated.ExitCode != 0 {
			return fmt.Sprintf(
				"%s: terminated with exit code %d (%s)",
				pod.Name, container.State.Terminated.ExitCode, container.State.Terminated.Reason,
			)
		}
	}

	for _, container := range pod.Status.InitContainerStatuses {
		if container.State.Waiting != nil && container.State.Waiting.Reason != "" {
			return fmt.Sprintf(
				"%s: init container %s: %s for %s",
				pod.Name, container.Name, container.State.Waiting.Reason, container.Image,
			)
		}
	}

	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodScheduled && condition.Status == corev1.ConditionFalse {
			return fmt.Sprintf("%s: %s: %s", pod.Name, condition.Reason, condition.Message)
		}
	}

	if pod.Status.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", pod.Name, pod.Status.Phase, pod.Status.Reason)
	}

	return fmt.Sprintf("%s: %s", pod.Name, pod.Status.Phase)
}
