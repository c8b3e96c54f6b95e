package di

import (
	"fmt"

	"github.com/devantler-tech/converge/pkg/config"
	"github.com/devantler-tech/converge/pkg/k8s"
	"github.com/devantler-tech/converge/pkg/monitor"
	"github.com/devantler-tech/converge/pkg/perf"
	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
)

// ResolveConfig retrieves the loaded configuration.
func ResolveConfig(injector Injector) (*config.Config, error) {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve config dependency: %w", err)
	}

	return cfg, nil
}

// ResolveLogger retrieves the shared logger.
func ResolveLogger(injector Injector) (*logrus.Logger, error) {
	logger, err := do.Invoke[*logrus.Logger](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve logger dependency: %w", err)
	}

	return logger, nil
}

// ResolveMonitorRegistry retrieves the monitor registry.
func ResolveMonitorRegistry(injector Injector) (*monitor.Registry, error) {
	registry, err := do.Invoke[*monitor.Registry](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve monitor registry dependency: %w", err)
	}

	return registry, nil
}

// ResolvePerfTracker retrieves the performance tracker.
func ResolvePerfTracker(injector Injector) (*perf.Tracker, error) {
	tracker, err := do.Invoke[*perf.Tracker](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve performance tracker dependency: %w", err)
	}

	return tracker, nil
}

// ResolveClientset builds a client from the configured kubeconfig and context.
func ResolveClientset(injector Injector) (kubernetes.Interface, error) {
	cfg, err := ResolveConfig(injector)
	if err != nil {
		return nil, err
	}

	factory, err := do.Invoke[k8s.ClientsetFactory](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve clientset factory dependency: %w", err)
	}

	clientset, err := factory(cfg.Kubeconfig, cfg.Context)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}

	return clientset, nil
}

// WithClientset decorates a handler to resolve the cluster client first.
func WithClientset(
	handler func(cmd *cobra.Command, injector Injector, clientset kubernetes.Interface) error,
) func(cmd *cobra.Command, injector Injector) error {
	return func(cmd *cobra.Command, injector Injector) error {
		clientset, err := ResolveClientset(injector)
		if err != nil {
			return err
		}

		return handler(cmd, injector, clientset)
	}
}
