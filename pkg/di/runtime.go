// Package di wires converge's shared services into CLI commands through a
// samber/do injector. Every command invocation gets a fresh container that is
// shut down when the command returns.
package di

import (
	"slices"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

// Injector is the dependency container handed to command handlers.
type Injector = do.Injector

// Module registers services with an injector.
type Module func(Injector) error

// Runtime holds the modules applied to every container it creates.
type Runtime struct {
	modules []Module
}

// New creates a runtime from base modules.
func New(modules ...Module) *Runtime {
	return &Runtime{modules: modules}
}

// With returns a runtime applying modules after the receiver's.
func (r *Runtime) With(modules ...Module) *Runtime {
	return &Runtime{modules: append(slices.Clone(r.modules), modules...)}
}

// Invoke builds a fresh container, applies the base modules and then extra in
// order, skipping nil ones, and runs handler. A module error is returned as-is
// and the handler is not run. The container is shut down afterwards.
func (r *Runtime) Invoke(handler func(Injector) error, extra ...Module) error {
	injector := do.New()
	defer injector.Shutdown()

	for _, modules := range [][]Module{r.modules, extra} {
		for _, module := range modules {
			if module == nil {
				continue
			}

			err := module(injector)
			if err != nil {
				return err
			}
		}
	}

	return handler(injector)
}

// RunEWithRuntime adapts a handler into a cobra RunE. The command itself is
// provided to the container (see ProvideCommand).
func RunEWithRuntime(
	runtime *Runtime,
	handler func(cmd *cobra.Command, injector Injector) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return runtime.Invoke(func(injector Injector) error {
			return handler(cmd, injector)
		}, ProvideCommand(cmd))
	}
}
