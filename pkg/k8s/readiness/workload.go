package readiness

import (
	"context"
	"errors"
	"fmt"

	"github.com/devantler-tech/converge/pkg/wait"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// DeploymentReady reports whether the deployment's ready replicas equal its
// desired replicas. A deployment without an explicit replica count wants one.
func DeploymentReady(clientset kubernetes.Interface, namespace, name string) wait.Probe {
	return func(ctx context.Context) (bool, error) {
		deployment, err := clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
		}

		return isDeploymentReady(deployment), nil
	}
}

// PodReady reports whether the pod is Running with every container ready.
// A Running pod that reports no container statuses yet is not ready.
func PodReady(clientset kubernetes.Interface, namespace, name string) wait.Probe {
	return func(ctx context.Context) (bool, error) {
		pod, err := clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, fmt.Errorf("get pod %s/%s: %w", namespace, name, err)
		}

		return isPodReady(pod), nil
	}
}

// GetDeployment returns a lookup for wait.ForExistence. A missing deployment
// yields (nil, nil).
func GetDeployment(
	clientset kubernetes.Interface,
	namespace, name string,
) func(ctx context.Context) (*appsv1.Deployment, error) {
	return func(ctx context.Context) (*appsv1.Deployment, error) {
		deployment, err := clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
		}

		return deployment, nil
	}
}

// WaitForDeploymentReady waits for DeploymentReady. On timeout the error
// carries a summary of failing pods in the namespace.
func WaitForDeploymentReady(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespace, name string,
	spec wait.Spec,
	opts ...wait.Option,
) error {
	description := fmt.Sprintf("deployment %s/%s to be ready", namespace, name)

	err := wait.Until(ctx, DeploymentReady(clientset, namespace, name), spec.WithDescription(description), opts...)

	return withDiagnostics(ctx, clientset, namespace, err)
}

// WaitForPodReady waits for PodReady. On timeout the error carries a summary
// of failing pods in the namespace.
func WaitForPodReady(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespace, name string,
	spec wait.Spec,
	opts ...wait.Option,
) error {
	description := fmt.Sprintf("pod %s/%s to be ready", namespace, name)

	err := wait.Until(ctx, PodReady(clientset, namespace, name), spec.WithDescription(description), opts...)

	return withDiagnostics(ctx, clientset, namespace, err)
}

func withDiagnostics(ctx context.Context, clientset kubernetes.Interface, namespace string, err error) error {
	if err == nil || !errors.Is(err, wait.ErrTimeout) {
		return err
	}

	diagnostics := DiagnosePodFailures(context.WithoutCancel(ctx), clientset, []string{namespace})
	if diagnostics == "" {
		return err
	}

	return fmt.Errorf("%w%s", err, diagnostics)
}

func isDeploymentReady(deployment *appsv1.Deployment) bool {
	desired := int32(1)
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}

	return deployment.Status.ReadyReplicas == desired
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning || len(pod.Status.ContainerStatuses) == 0 {
		return false
	}

	for _, container := range pod.Status.ContainerStatuses {
		if !container.Ready {
			return false
		}
	}

	return true
}
