package cli

import (
	"github.com/spf13/cobra"

	"github.com/pablasso/crewflow/internal/version"
)

// NewRootCmd builds the crewflow command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crewflow",
		Short: "Plan, execute and review tasks with a crew of model agents",
		Long: `crewflow drives each task of a batch through a plan, execute, review loop.
A planner proposes steps, a reviewer approves the plan and every step, an
executor carries the steps out and a coordinator summarizes the result.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.String() + "\n")

	root.AddCommand(
		newRunCmd(),
		newDemoCmd(),
		newInitCmd(),
		newReportCmd(),
		newSkillsCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
