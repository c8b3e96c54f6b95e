package cmd

import (
	"fmt"

	"github.com/devantler-tech/converge/pkg/di"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd(runtimeContainer *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "config",
		Short:        "Inspect converge configuration",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "view",
		Short: "Print the effective configuration as YAML",
		Long: "Print the configuration after applying converge.yaml, CONVERGE_* environment " +
			"variables and flags. The output is a valid converge.yaml.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         di.RunEWithRuntime(runtimeContainer, handleConfigViewRunE),
	})

	return cmd
}

func handleConfigViewRunE(cmd *cobra.Command, injector di.Injector) error {
	cfg, err := di.ResolveConfig(injector)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg.Settings())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(out)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
