package readiness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/devantler-tech/converge/pkg/parallel"
	"github.com/devantler-tech/converge/pkg/wait"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/kubernetes"
)

// Resource types understood by Check.
const (
	TypeNode       = "node"
	TypeDeployment = "deployment"
	TypePod        = "pod"
)

// Check names one resource to wait for.
type Check struct {
	Type      string
	Namespace string
	Name      string
}

func (c Check) String() string {
	if c.Namespace == "" {
		return c.Type + "/" + c.Name
	}

	return c.Type + "/" + c.Namespace + "/" + c.Name
}

// DefaultNamespace is used by ParseCheck when a namespaced check omits one.
const DefaultNamespace = "default"

// ParseCheck parses the String form of a Check: node/NAME,
// deployment/[NAMESPACE/]NAME or pod/[NAMESPACE/]NAME.
func ParseCheck(value string) (Check, error) {
	parts := strings.Split(value, "/")
	if slices.Contains(parts, "") || len(parts) < 2 || len(parts) > 3 {
		return Check{}, fmt.Errorf("%w: %q", ErrInvalidCheck, value)
	}

	check := Check{Type: parts[0], Name: parts[len(parts)-1]}

	switch check.Type {
	case TypeNode:
		if len(parts) == 3 {
			return Check{}, fmt.Errorf("%w: nodes are not namespaced: %q", ErrInvalidCheck, value)
		}
	case TypeDeployment, TypePod:
		check.Namespace = DefaultNamespace
		if len(parts) == 3 {
			check.Namespace = parts[1]
		}
	default:
		return Check{}, fmt.Errorf("%w: %q", ErrUnknownResourceType, check.Type)
	}

	return check, nil
}

// WaitForResources waits for every check concurrently, at most maxConcurrency
// at a time (<= 0 selects the default). Each check gets the full spec budget.
// Every failure is reported, not only the first.
func WaitForResources(
	ctx context.Context,
	clientset kubernetes.Interface,
	checks []Check,
	spec wait.Spec,
	maxConcurrency int64,
	opts ...wait.Option,
) error {
	tasks := make([]func(context.Context) (struct{}, error), 0, len(checks))

	for _, check := range checks {
		tasks = append(tasks, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, waitForCheck(ctx, clientset, check, spec, opts)
		})
	}

	results := parallel.Gather(ctx, maxConcurrency, tasks...)

	return utilerrors.NewAggregate(parallel.Errors(results))
}

func waitForCheck(
	ctx context.Context,
	clientset kubernetes.Interface,
	check Check,
	spec wait.Spec,
	opts []wait.Option,
) error {
	switch check.Type {
	case TypeNode:
		return WaitForNodeReady(ctx, clientset, check.Name, spec, opts...)
	case TypeDeployment:
		return WaitForDeploymentReady(ctx, clientset, check.Namespace, check.Name, spec, opts...)
	case TypePod:
		return WaitForPodReady(ctx, clientset, check.Namespace, check.Name, spec, opts...)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownResourceType, check)
	}
}
