// Package watch provides the watch subcommands, which keep re-checking
// cluster state in the background and report every status change.
package watch

import (
	"fmt"

	"github.com/devantler-tech/converge/pkg/di"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the parent watch command.
func NewWatchCmd(runtimeContainer *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "watch",
		Short:        "Monitor cluster readiness in the background",
		Args:         cobra.NoArgs,
		RunE:         handleWatchRunE,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewNodesCmd(runtimeContainer))

	return cmd
}

func handleWatchRunE(cmd *cobra.Command, _ []string) error {
	err := cmd.Help()
	if err != nil {
		return fmt.Errorf("displaying watch command help: %w", err)
	}

	return nil
}
