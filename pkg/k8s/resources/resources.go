// Package resources creates Kubernetes objects for tests and registers their
// deletion with a tracker, so every object a test creates is removed at teardown.
package resources

import (
	"context"
	"fmt"

	"github.com/devantler-tech/converge/pkg/backoff"
	"github.com/devantler-tech/converge/pkg/retry"
	"github.com/devantler-tech/converge/pkg/tracker"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// ManagedByLabel marks objects created through a Creator.
const ManagedByLabel = "app.kubernetes.io/managed-by"

const managedByValue = "converge"

// Tracked kinds as they appear in tracker records.
const (
	KindNamespace  = "namespace"
	KindDeployment = "deployment"
	KindConfigMap  = "configmap"
	KindSecret     = "secret"
)

// Creator creates objects and tracks their deletion.
type Creator struct {
	clientset    kubernetes.Interface
	tracker      *tracker.Tracker
	deleteRetry  backoff.Spec
	retryOptions []retry.Option
}

// CreatorOption configures a Creator.
type CreatorOption func(*Creator)

// WithDeleteRetry sets how tracked deletions are retried on transient API
// errors. The default is backoff.Default.
func WithDeleteRetry(spec backoff.Spec, opts ...retry.Option) CreatorOption {
	return func(c *Creator) {
		c.deleteRetry = spec
		c.retryOptions = opts
	}
}

// NewCreator returns a Creator registering cleanups with tr.
func NewCreator(clientset kubernetes.Interface, tr *tracker.Tracker, opts ...CreatorOption) *Creator {
	creator := &Creator{clientset: clientset, tracker: tr, deleteRetry: backoff.Default()}

	for _, opt := range opts {
		opt(creator)
	}

	return creator
}

// track registers a deletion that is retried on transient errors and treats
// an already deleted object as cleaned up.
func (c *Creator) track(kind, id string, remove func(ctx context.Context) error) {
	opts := append([]retry.Option{
		retry.WithName("delete " + kind + " " + id),
		retry.WithRetryIf(retry.IsTransient),
	}, c.retryOptions...)

	c.tracker.Track(kind, id, func(ctx context.Context) error {
		return retry.Do(ctx, c.deleteRetry, func(ctx context.Context) error {
			return ignoreNotFound(remove(ctx))
		}, opts...)
	})
}

// CreateNamespace creates a namespace.
func (c *Creator) CreateNamespace(ctx context.Context, name string) (*corev1.Namespace, error) {
	namespace := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	markManaged(&namespace.ObjectMeta)

	created, err := c.clientset.CoreV1().Namespaces().Create(ctx, namespace, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create namespace %s: %w", name, err)
	}

	c.track(KindNamespace, name, func(ctx context.Context) error {
		return c.clientset.CoreV1().Namespaces().Delete(ctx, name, deleteOptions())
	})

	return created, nil
}

// CreateDeployment creates the deployment in its namespace ("default" when unset).
func (c *Creator) CreateDeployment(ctx context.Context, deployment *appsv1.Deployment) (*appsv1.Deployment, error) {
	namespace := namespaceOrDefault(deployment.Namespace)
	markManaged(&deployment.ObjectMeta)

	created, err := c.clientset.AppsV1().Deployments(namespace).Create(ctx, deployment, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create deployment %s/%s: %w", namespace, deployment.Name, err)
	}

	name := created.Name

	c.track(KindDeployment, namespace+"/"+name, func(ctx context.Context) error {
		return c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, deleteOptions())
	})

	return created, nil
}

// CreateConfigMap creates a config map holding data.
func (c *Creator) CreateConfigMap(
	ctx context.Context,
	namespace, name string,
	data map[string]string,
) (*corev1.ConfigMap, error) {
	namespace = namespaceOrDefault(namespace)

	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Data:       data,
	}

	return c.createConfigMap(ctx, configMap)
}

func (c *Creator) createConfigMap(ctx context.Context, configMap *corev1.ConfigMap) (*corev1.ConfigMap, error) {
	namespace := namespaceOrDefault(configMap.Namespace)
	markManaged(&configMap.ObjectMeta)

	created, err := c.clientset.CoreV1().ConfigMaps(namespace).Create(ctx, configMap, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create configmap %s/%s: %w", namespace, configMap.Name, err)
	}

	name := created.Name

	c.track(KindConfigMap, namespace+"/"+name, func(ctx context.Context) error {
		return c.clientset.CoreV1().ConfigMaps(namespace).Delete(ctx, name, deleteOptions())
	})

	return created, nil
}

// CreateSecret creates an opaque secret holding data.
func (c *Creator) CreateSecret(
	ctx context.Context,
	namespace, name string,
	data map[string][]byte,
) (*corev1.Secret, error) {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespaceOrDefault(namespace)},
		Type:       corev1.SecretTypeOpaque,
		Data:       data,
	}

	return c.createSecret(ctx, secret)
}

func (c *Creator) createSecret(ctx context.Context, secret *corev1.Secret) (*corev1.Secret, error) {
	namespace := namespaceOrDefault(secret.Namespace)
	markManaged(&secret.ObjectMeta)

	created, err := c.clientset.CoreV1().Secrets(namespace).Create(ctx, secret, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create secret %s/%s: %w", namespace, secret.Name, err)
	}

	name := created.Name

	c.track(KindSecret, namespace+"/"+name, func(ctx context.Context) error {
		return c.clientset.CoreV1().Secrets(namespace).Delete(ctx, name, deleteOptions())
	})

	return created, nil
}

// DeploymentExists returns a presence check for wait.ForCleanup keyed by
// deployment name.
func DeploymentExists(clientset kubernetes.Interface, namespace string) func(context.Context, string) (bool, error) {
	namespace = namespaceOrDefault(namespace)

	return func(ctx context.Context, name string) (bool, error) {
		_, err := clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return false, nil
		}

		if err != nil {
			return false, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
		}

		return true, nil
	}
}

func markManaged(meta *metav1.ObjectMeta) {
	if meta.Labels == nil {
		meta.Labels = make(map[string]string)
	}

	meta.Labels[ManagedByLabel] = managedByValue
}

func namespaceOrDefault(namespace string) string {
	if namespace == "" {
		return metav1.NamespaceDefault
	}

	return namespace
}

func deleteOptions() metav1.DeleteOptions {
	propagation := metav1.DeletePropagationBackground

	return metav1.DeleteOptions{PropagationPolicy: &propagation}
}

// ignoreNotFound treats an already deleted object as cleaned up.
func ignoreNotFound(err error) error {
	if err == nil || apierrors.IsNotFound(err) {
		return nil
	}

	return err
}
