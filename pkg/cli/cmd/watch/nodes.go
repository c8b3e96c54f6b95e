package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/devantler-tech/converge/pkg/di"
	"github.com/devantler-tech/converge/pkg/k8s/readiness"
	"github.com/devantler-tech/converge/pkg/monitor"
	"github.com/devantler-tech/converge/pkg/notify"
	"github.com/spf13/cobra"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/kubernetes"
)

// anyNodeKey is the monitor key used when no node names are given.
const anyNodeKey = "nodes"

// NewNodesCmd creates the watch nodes command.
func NewNodesCmd(runtimeContainer *di.Runtime) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "nodes [NAME...]",
		Short: "Watch node readiness",
		Long: `Watch node readiness every --monitor-interval and print each status change.

Each named node gets its own monitor; without names a single monitor tracks
whether any node is Ready. The watch ends after --duration, or on interrupt
when no duration is set, and fails if a monitored condition is not valid then.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := di.WithClientset(
				func(cmd *cobra.Command, injector di.Injector, clientset kubernetes.Interface) error {
					return runWatchNodes(cmd, injector, clientset, args, duration)
				},
			)

			return di.RunEWithRuntime(runtimeContainer, handler)(cmd, args)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "How long to watch (0 watches until interrupted)")

	return cmd
}

func runWatchNodes(
	cmd *cobra.Command,
	injector di.Injector,
	clientset kubernetes.Interface,
	names []string,
	duration time.Duration,
) error {
	cfg, err := di.ResolveConfig(injector)
	if err != nil {
		return err
	}

	registry, err := di.ResolveMonitorRegistry(injector)
	if err != nil {
		return err
	}

	probes := nodeProbes(clientset, names)
	out := cmd.OutOrStdout()

	ctx := cmd.Context()

	if duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	notify.Titlef(out, "👀", "Watch %d node monitor(s)...", len(probes))
	notify.Activityf(out, "checking every %s", cfg.Monitor.Interval)

	for key, probe := range probes {
		err = registry.Start(ctx, key, probe, cfg.Monitor.Interval)
		if err != nil {
			registry.StopAll()

			return fmt.Errorf("start monitor %s: %w", key, err)
		}
	}

	reportChanges(ctx, out, registry, cfg.Monitor.Interval)

	return finish(out, registry)
}

func nodeProbes(clientset kubernetes.Interface, names []string) map[string]monitor.Probe {
	if len(names) == 0 {
		return map[string]monitor.Probe{anyNodeKey: monitor.FromBool(readiness.AnyNodeReady(clientset))}
	}

	probes := make(map[string]monitor.Probe, len(names))
	for _, name := range names {
		probes["node/"+name] = monitor.FromBool(readiness.NodeReady(clientset, name))
	}

	return probes
}

// reportChanges prints every status change until ctx is done.
func reportChanges(ctx context.Context, out io.Writer, registry *monitor.Registry, interval time.Duration) {
	reported := make(map[string]monitor.Status)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, key := range registry.Keys() {
			status := registry.LastStatus(key)
			if status == monitor.StatusUnknown || reported[key] == status {
				continue
			}

			reported[key] = status
			writeStatus(out, key, status)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// finish stops every monitor and fails for each one whose last status is not valid.
func finish(out io.Writer, registry *monitor.Registry) error {
	var errs []error

	for _, key := range registry.Keys() {
		snapshot, _ := registry.Snapshot(key)
		_ = registry.Stop(key)

		notify.Infof(out, "%s: %s after %d checks (%d failed)",
			key, snapshot.Status, snapshot.Checks, snapshot.Failures)

		if snapshot.Status != monitor.StatusValid {
			errs = append(errs, fmt.Errorf("%w: %s is %s", ErrNotValid, key, snapshot.Status))
		}
	}

	return utilerrors.NewAggregate(errs)
}

func writeStatus(out io.Writer, key string, status monitor.Status) {
	if status == monitor.StatusValid {
		notify.Successf(out, "%s: %s", key, status)

		return
	}

	notify.Warningf(out, "%s: %s", key, status)
}
