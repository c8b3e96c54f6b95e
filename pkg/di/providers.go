package di

import (
	"fmt"
	"io"

	"github.com/devantler-tech/converge/pkg/config"
	"github.com/devantler-tech/converge/pkg/k8s"
	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/devantler-tech/converge/pkg/monitor"
	"github.com/devantler-tech/converge/pkg/perf"
	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configFlag is the persistent flag naming an explicit config file.
const configFlag = "config"

// Output holds the writers of the running command.
type Output struct {
	Out io.Writer
	Err io.Writer
}

// NewRuntime constructs the runtime used by the root command and tests. It
// registers lazy providers for config, logger, monitor registry, performance
// tracker and clientset factory.
func NewRuntime() *Runtime {
	return New(
		provideConfig,
		provideLogger,
		provideMonitorRegistry,
		providePerfTracker,
		provideClientsetFactory,
	)
}

// ProvideCommand provides the command's writers and a viper instance with the
// command's flags bound, reading the file named by --config when set.
func ProvideCommand(cmd *cobra.Command) Module {
	return func(i Injector) error {
		configFile := ""
		if flag := cmd.Flags().Lookup(configFlag); flag != nil {
			configFile = flag.Value.String()
		}

		v := config.NewViper(configFile)

		err := config.BindFlags(v, cmd.Flags())
		if err != nil {
			return fmt.Errorf("bind command flags: %w", err)
		}

		do.ProvideValue(i, v)
		do.ProvideValue(i, Output{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()})

		return nil
	}
}

func provideConfig(i Injector) error {
	do.Provide(i, func(i Injector) (*config.Config, error) {
		v, err := do.Invoke[*viper.Viper](i)
		if err != nil {
			return nil, fmt.Errorf("resolve viper: %w", err)
		}

		return config.Load(v)
	})

	return nil
}

func provideLogger(i Injector) error {
	do.Provide(i, func(i Injector) (*logrus.Logger, error) {
		cfg, err := do.Invoke[*config.Config](i)
		if err != nil {
			return nil, err
		}

		var output io.Writer

		if out, outErr := do.Invoke[Output](i); outErr == nil {
			output = out.Err
		}

		return logging.New(cfg.LoggingOptions(output))
	})

	return nil
}

func provideMonitorRegistry(i Injector) error {
	do.Provide(i, func(i Injector) (*monitor.Registry, error) {
		logger, err := do.Invoke[*logrus.Logger](i)
		if err != nil {
			return nil, err
		}

		return monitor.NewRegistry(monitor.WithLogger(logger)), nil
	})

	return nil
}

func providePerfTracker(i Injector) error {
	do.Provide(i, func(i Injector) (*perf.Tracker, error) {
		logger, err := do.Invoke[*logrus.Logger](i)
		if err != nil {
			return nil, err
		}

		return perf.NewTracker(perf.WithLogger(logger)), nil
	})

	return nil
}

func provideClientsetFactory(i Injector) error {
	do.Provide(i, func(Injector) (k8s.ClientsetFactory, error) {
		return k8s.NewClientset, nil
	})

	return nil
}

// OverrideClientsetFactory replaces the registered clientset factory, e.g.
// with one returning a fake client.
func OverrideClientsetFactory(factory k8s.ClientsetFactory) Module {
	return func(i Injector) error {
		do.Override(i, func(Injector) (k8s.ClientsetFactory, error) {
			return factory, nil
		})

		return nil
	}
}
